package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/monitor"
	"github.com/hamed0406/apistatus/internal/repo"
)

// ---- shared helpers ----

func outcome(name string, prev domain.Status, existed bool, cur domain.Status) monitor.Outcome {
	obs := domain.Observation{Status: cur, LastChecked: "19/10/2026, 14:05:09"}
	if cur != domain.StatusDown {
		ms := int64(120)
		obs.ResponseTimeMS = &ms
	}
	return monitor.Outcome{
		Target:      domain.Target{Name: name, URL: "https://" + name + ".example.com/health"},
		Observation: obs,
		Recorded:    repo.Recorded{Previous: prev, Existed: existed},
	}
}

type memNotifier struct {
	n      int
	titles []string
	err    error
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.n++
	m.titles = append(m.titles, title)
	return m.err
}

// ---- tests ----

func TestAlerter_SendsOnDown_RespectsCooldown(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(zap.NewNop(), nt, AlerterConfig{AlertOnRecovery: true, Cooldown: time.Minute})
	ctx := context.Background()

	// first observation is down -> alert
	al.Observed(ctx, outcome("A", "", false, domain.StatusDown))
	assert.Equal(t, 1, nt.n, "want 1 alert")

	// still down -> not a new incident
	al.Observed(ctx, outcome("A", domain.StatusDown, true, domain.StatusDown))
	assert.Equal(t, 1, nt.n, "want no repeat while down")

	// recovers -> recovery alert bypasses cooldown
	al.Observed(ctx, outcome("A", domain.StatusDown, true, domain.StatusOnline))
	assert.Equal(t, 2, nt.n, "want recovery alert")

	// flaps down again within cooldown -> muted
	al.Observed(ctx, outcome("A", domain.StatusOnline, true, domain.StatusDown))
	assert.Equal(t, 2, nt.n, "want cooldown to suppress")

	// other targets are not muted
	al.Observed(ctx, outcome("B", domain.StatusSlow, true, domain.StatusDown))
	assert.Equal(t, 3, nt.n, "want alert for B")
	assert.Equal(t, []string{"🔴 API DOWN", "🟢 API RECOVERED", "🔴 API DOWN"}, nt.titles)
}

func TestAlerter_NoRecoveryIfDisabled(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(zap.NewNop(), nt, AlerterConfig{AlertOnRecovery: false})
	ctx := context.Background()

	// first time online -> nothing to report
	al.Observed(ctx, outcome("B", "", false, domain.StatusOnline))
	assert.Equal(t, 0, nt.n, "first online observation must not alert")

	al.Observed(ctx, outcome("B", domain.StatusOnline, true, domain.StatusDown))
	assert.Equal(t, 1, nt.n, "want one down alert")

	al.Observed(ctx, outcome("B", domain.StatusDown, true, domain.StatusOnline))
	assert.Equal(t, 1, nt.n, "recovery alerts are off")
}

func TestAlerter_NoCooldownAlertsEveryIncident(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(zap.NewNop(), nt, AlerterConfig{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		al.Observed(ctx, outcome("C", domain.StatusOnline, true, domain.StatusDown))
	}
	assert.Equal(t, 3, nt.n, "want 3 alerts")
}

func TestAlerter_SlowIsNotAnIncident(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(zap.NewNop(), nt, AlerterConfig{AlertOnRecovery: true})
	al.Observed(context.Background(), outcome("D", domain.StatusOnline, true, domain.StatusSlow))
	assert.Equal(t, 0, nt.n, "slow must not alert")
}

func TestAlerter_SendErrorStillMutes(t *testing.T) {
	nt := &memNotifier{err: errors.New("webhook 500")}
	al := NewAlerter(zap.NewNop(), nt, AlerterConfig{Cooldown: time.Minute})
	ctx := context.Background()
	al.Observed(ctx, outcome("E", "", false, domain.StatusDown))
	al.Observed(ctx, outcome("E", domain.StatusOnline, true, domain.StatusDown))
	assert.Equal(t, 1, nt.n, "want single attempt inside cooldown")
}
