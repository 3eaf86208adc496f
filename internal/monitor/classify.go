package monitor

import (
	"time"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/probe"
)

// DefaultSlowAfter is the latency above which a reachable target is "slow".
const DefaultSlowAfter = 1500 * time.Millisecond

// Classifier turns a probe result into a storable observation.
type Classifier struct {
	SlowAfter time.Duration
	Location  *time.Location // zone used to render lastChecked
	Now       func() time.Time
}

func (c Classifier) Classify(res probe.CheckResult) domain.Observation {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	slowAfter := c.SlowAfter
	if slowAfter <= 0 {
		slowAfter = DefaultSlowAfter
	}

	checkedAt := now().UTC()
	obs := domain.Observation{
		CheckedAt:   checkedAt,
		LastChecked: domain.FormatLocal(checkedAt, c.Location),
	}
	if !res.Success {
		obs.Status = domain.StatusDown
		obs.Message = domain.MessageDown
		return obs
	}

	ms := res.Latency.Milliseconds()
	obs.ResponseTimeMS = &ms
	if ms > slowAfter.Milliseconds() {
		obs.Status = domain.StatusSlow
		obs.Message = domain.MessageSlow
	} else {
		obs.Status = domain.StatusOnline
		obs.Message = domain.MessageOnline
	}
	return obs
}
