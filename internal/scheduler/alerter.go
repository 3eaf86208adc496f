package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/monitor"
	"github.com/hamed0406/apistatus/internal/notify"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration // 0 disables muting
}

// Alerter is a cycle hook that notifies when a target goes down or recovers.
type Alerter struct {
	logger   *zap.Logger
	notifier notify.Notifier
	cfg      AlerterConfig
	muted    *cache.Cache // target name -> time of the last down alert
}

func NewAlerter(logger *zap.Logger, n notify.Notifier, cfg AlerterConfig) *Alerter {
	a := &Alerter{logger: logger, notifier: n, cfg: cfg}
	if cfg.Cooldown > 0 {
		a.muted = cache.New(cfg.Cooldown, 2*cfg.Cooldown)
	}
	return a
}

var _ monitor.Hook = (*Alerter)(nil)

func (a *Alerter) Observed(ctx context.Context, o monitor.Outcome) {
	cur := o.Observation.Status
	wasDown := o.Existed && o.Previous == domain.StatusDown

	switch {
	case cur == domain.StatusDown && !wasDown:
		if a.muted != nil {
			if _, found := a.muted.Get(o.Target.Name); found {
				a.logger.Info("alert_muted", zap.String("target", o.Target.Name))
				return
			}
		}
		a.send(ctx, "🔴 API DOWN", o)
		if a.muted != nil {
			a.muted.Set(o.Target.Name, time.Now(), cache.DefaultExpiration)
		}
	case cur != domain.StatusDown && wasDown && a.cfg.AlertOnRecovery:
		// recovery ignores the cooldown
		a.send(ctx, "🟢 API RECOVERED", o)
	}
}

func (a *Alerter) send(ctx context.Context, title string, o monitor.Outcome) {
	latency := "n/a"
	if o.Observation.ResponseTimeMS != nil {
		latency = fmt.Sprintf("%d ms", *o.Observation.ResponseTimeMS)
	}
	text := fmt.Sprintf(
		"Name: %s\nURL: %s\nStatus: %s\nMessage: %s\nLatency: %s\nChecked: %s",
		o.Target.Name, o.Target.URL, o.Observation.Status, o.Observation.Message, latency, o.Observation.LastChecked,
	)
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.logger.Warn("alert_send_failed", zap.String("target", o.Target.Name), zap.Error(err))
		return
	}
	a.logger.Info("alert_sent", zap.String("target", o.Target.Name), zap.String("title", title))
}
