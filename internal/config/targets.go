package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/hamed0406/apistatus/internal/domain"
)

// LoadTargets reads the monitored endpoints from a YAML, JSON or TOML file:
//
//	targets:
//	  - name: conversions
//	    url: https://conversions.example.com/health
func LoadTargets(path string) ([]domain.Target, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var targets []domain.Target
	if err := v.UnmarshalKey("targets", &targets); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	for i := range targets {
		targets[i].Name = strings.TrimSpace(targets[i].Name)
		targets[i].URL = strings.TrimSpace(targets[i].URL)
	}
	if err := ValidateTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func ValidateTargets(targets []domain.Target) error {
	if len(targets) == 0 {
		return errors.New("no targets configured")
	}
	var err error
	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			err = multierr.Append(err, fmt.Errorf("target #%d: empty name", i+1))
		} else if seen[t.Name] {
			err = multierr.Append(err, fmt.Errorf("target %q: duplicate name", t.Name))
		}
		seen[t.Name] = true
		if !isValidHTTPURL(t.URL) {
			err = multierr.Append(err, fmt.Errorf("target %q: invalid url %q", t.Name, t.URL))
		}
	}
	return err
}

func isValidHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
