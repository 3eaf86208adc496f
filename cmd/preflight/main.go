// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/hamed0406/apistatus/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := godotenv.Load(); err == nil {
		ok(".env loaded")
	}
	cfg := config.FromEnv()

	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		fail("configuration is invalid")
	}
	ok(fmt.Sprintf("schedule %q in %s", cfg.Schedule, cfg.TimeZone))

	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		fail("targets file " + cfg.TargetsFile + " is unusable")
	}
	ok(fmt.Sprintf("%d targets in %s", len(targets), cfg.TargetsFile))

	switch {
	case cfg.MongoURI != "":
		ok("MONGODB_URI present, statuses go to " + cfg.MongoDatabase + "." + cfg.Collection)
	case cfg.DatabaseURL != "":
		ok("DATABASE_URL present, statuses go to table " + cfg.Collection)
	default:
		warn("MONGODB_URI and DATABASE_URL empty; statuses are kept in memory and lost on restart.")
	}

	if cfg.AllowedOrigin == "" {
		warn("ALLOWED_ORIGINS empty; every cross-origin browser request will get 403.")
	} else {
		ok("ALLOWED_ORIGINS=" + cfg.AllowedOrigin)
	}

	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK_URL empty; down alerts are disabled.")
	} else {
		ok("Slack alerts enabled")
	}

	ok("preflight passed")
}
