package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/probe"
	"github.com/hamed0406/apistatus/internal/repo"
)

// Outcome is what one target produced in a cycle.
type Outcome struct {
	Target      domain.Target
	Observation domain.Observation
	repo.Recorded
}

// Hook is notified after each target has been recorded.
type Hook interface {
	Observed(ctx context.Context, o Outcome)
}

// Report summarises a finished (or aborted) cycle.
type Report struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Count returns how many targets ended in status st.
func (r Report) Count(st domain.Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Observation.Status == st {
			n++
		}
	}
	return n
}

// Cycle checks every target once, strictly one after another, in list order.
type Cycle struct {
	Logger      *zap.Logger
	Targets     []domain.Target
	Checker     probe.Checker
	Classifier  Classifier
	Store       repo.StatusStore
	Hooks       []Hook
	DiagnoseDNS bool
}

// Run performs one pass. Probe failures are recorded as down; a storage error
// stops the pass and the remaining targets are not checked.
func (c *Cycle) Run(ctx context.Context) (Report, error) {
	rep := Report{ID: uuid.NewString(), Started: time.Now()}
	log := c.Logger.With(zap.String("cycle_id", rep.ID))
	log.Info("cycle_started", zap.Int("targets", len(c.Targets)))

	for _, t := range c.Targets {
		res := c.Checker.Check(ctx, t.URL)
		obs := c.Classifier.Classify(res)

		rec, err := c.Store.Record(ctx, t.Name, obs)
		if err != nil {
			rep.Duration = time.Since(rep.Started)
			log.Error("cycle_aborted",
				zap.String("target", t.Name),
				zap.Int("checked", len(rep.Outcomes)),
				zap.Error(err),
			)
			return rep, fmt.Errorf("record %q: %w", t.Name, err)
		}

		out := Outcome{Target: t, Observation: obs, Recorded: rec}
		rep.Outcomes = append(rep.Outcomes, out)
		c.logOutcome(ctx, log, out, res)

		for _, h := range c.Hooks {
			h.Observed(ctx, out)
		}
	}

	rep.Duration = time.Since(rep.Started)
	log.Info("cycle_finished",
		zap.Duration("took", rep.Duration),
		zap.Int("online", rep.Count(domain.StatusOnline)),
		zap.Int("slow", rep.Count(domain.StatusSlow)),
		zap.Int("down", rep.Count(domain.StatusDown)),
	)
	return rep, nil
}

func (c *Cycle) logOutcome(ctx context.Context, log *zap.Logger, o Outcome, res probe.CheckResult) {
	fields := []zap.Field{
		zap.String("target", o.Target.Name),
		zap.String("url", o.Target.URL),
		zap.String("status", string(o.Observation.Status)),
		zap.Int("http_status", res.StatusCode),
		zap.String("reason", res.Message),
		zap.Bool("history_appended", o.Appended),
	}
	if o.Observation.ResponseTimeMS != nil {
		fields = append(fields, zap.Int64("response_ms", *o.Observation.ResponseTimeMS))
	}
	if o.Transition(o.Observation.Status) {
		fields = append(fields, zap.String("previous", string(o.Previous)))
	}

	if o.Observation.Status != domain.StatusDown {
		log.Info("target_checked", fields...)
		return
	}
	if c.DiagnoseDNS {
		dns := probe.Diagnose(ctx, o.Target.URL)
		fields = append(fields,
			zap.String("dns_class", dns.Class),
			zap.Strings("dns_ips", dns.IPs),
			zap.String("dns_cname", dns.CNAME),
			zap.String("dns_error", dns.ResolverError),
		)
	}
	log.Warn("target_checked", fields...)
}
