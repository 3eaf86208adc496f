package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/probe"
	"github.com/hamed0406/apistatus/internal/repo"
	"github.com/hamed0406/apistatus/internal/repo/memory"
)

// scriptedChecker answers from a per-URL table and remembers call order.
type scriptedChecker struct {
	mu      sync.Mutex
	results map[string]probe.CheckResult
	calls   []string
}

func (s *scriptedChecker) Check(_ context.Context, target string) probe.CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, target)
	return s.results[target]
}

type failingStore struct {
	repo.StatusStore
	failOn string
}

func (f *failingStore) Record(ctx context.Context, name string, obs domain.Observation) (repo.Recorded, error) {
	if name == f.failOn {
		return repo.Recorded{}, errors.New("write failed")
	}
	return f.StatusStore.Record(ctx, name, obs)
}

type recordingHook struct{ got []Outcome }

func (r *recordingHook) Observed(_ context.Context, o Outcome) { r.got = append(r.got, o) }

var targets = []domain.Target{
	{Name: "fast", URL: "https://fast.example.com/health"},
	{Name: "slow", URL: "https://slow.example.com/health"},
	{Name: "dead", URL: "https://dead.example.com/health"},
}

func newChecker() *scriptedChecker {
	return &scriptedChecker{results: map[string]probe.CheckResult{
		"https://fast.example.com/health": {Success: true, StatusCode: 200, Latency: 300 * time.Millisecond},
		"https://slow.example.com/health": {Success: true, StatusCode: 200, Latency: 2000 * time.Millisecond},
		"https://dead.example.com/health": {Success: false, Message: "context deadline exceeded"},
	}}
}

func newCycle(chk probe.Checker, store repo.StatusStore, hooks ...Hook) *Cycle {
	return &Cycle{
		Logger:     zap.NewNop(),
		Targets:    targets,
		Checker:    chk,
		Classifier: classifier(),
		Store:      store,
		Hooks:      hooks,
	}
}

func TestCycle_RecordsEveryTargetInOrder(t *testing.T) {
	chk := newChecker()
	store := memory.New(repo.HistoryOptions{Policy: domain.HistoryTransitions, Limit: 100})
	hook := &recordingHook{}

	rep, err := newCycle(chk, store, hook).Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.Len(t, rep.Outcomes, 3)
	assert.Equal(t, []string{
		"https://fast.example.com/health",
		"https://slow.example.com/health",
		"https://dead.example.com/health",
	}, chk.calls)
	assert.Len(t, hook.got, 3)

	fast, _ := store.Get(context.Background(), "fast")
	require.NotNil(t, fast)
	assert.Equal(t, domain.StatusOnline, fast.Status)
	assert.Equal(t, int64(300), *fast.ResponseTimeMS)

	slow, _ := store.Get(context.Background(), "slow")
	assert.Equal(t, domain.StatusSlow, slow.Status)
	assert.Equal(t, int64(2000), *slow.ResponseTimeMS)
	assert.Equal(t, domain.MessageSlow, slow.Message)

	dead, _ := store.Get(context.Background(), "dead")
	assert.Equal(t, domain.StatusDown, dead.Status)
	assert.Nil(t, dead.ResponseTimeMS)
	assert.Equal(t, domain.MessageDown, dead.Message)

	assert.Equal(t, 1, rep.Count(domain.StatusOnline))
	assert.Equal(t, 1, rep.Count(domain.StatusSlow))
	assert.Equal(t, 1, rep.Count(domain.StatusDown))
}

func TestCycle_IdenticalResponsesAreIdempotent(t *testing.T) {
	store := memory.New(repo.HistoryOptions{Policy: domain.HistoryTransitions})
	c := newCycle(newChecker(), store)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	first, _ := store.List(context.Background())

	c.Classifier.Now = func() time.Time { return fixedNow.Add(5 * time.Minute) }
	rep, err := c.Run(context.Background())
	require.NoError(t, err)
	second, _ := store.List(context.Background())

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].Message, second[i].Message)
		assert.Equal(t, first[i].ResponseTimeMS, second[i].ResponseTimeMS)
		assert.NotEqual(t, first[i].LastChecked, second[i].LastChecked)
		// no status change, so the transitions policy adds nothing
		assert.Len(t, second[i].History, 1)
	}
	for _, o := range rep.Outcomes {
		assert.False(t, o.Transition(o.Observation.Status))
	}
}

func TestCycle_StoreErrorAbortsRemainingTargets(t *testing.T) {
	chk := newChecker()
	store := &failingStore{StatusStore: memory.New(repo.HistoryOptions{Policy: domain.HistoryAll}), failOn: "slow"}

	rep, err := newCycle(chk, store).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow")
	assert.Len(t, rep.Outcomes, 1)
	assert.Len(t, chk.calls, 2, "dead must not be probed after the failed write")

	dead, _ := store.Get(context.Background(), "dead")
	assert.Nil(t, dead)
}

func TestCycle_TransitionIsReported(t *testing.T) {
	chk := newChecker()
	store := memory.New(repo.HistoryOptions{Policy: domain.HistoryTransitions})
	c := newCycle(chk, store)
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	chk.results["https://fast.example.com/health"] = probe.CheckResult{Success: false, Message: "connection refused"}
	hook := &recordingHook{}
	c.Hooks = []Hook{hook}
	_, err = c.Run(context.Background())
	require.NoError(t, err)

	got := hook.got[0]
	assert.Equal(t, "fast", got.Target.Name)
	assert.True(t, got.Transition(domain.StatusDown))
	assert.Equal(t, domain.StatusOnline, got.Previous)
	assert.True(t, got.Appended)

	fast, _ := store.Get(context.Background(), "fast")
	require.Len(t, fast.History, 2)
	assert.Equal(t, domain.StatusDown, fast.History[1].Status)
}

func TestCycle_RealHTTPChecker(t *testing.T) {
	store := memory.New(repo.HistoryOptions{Policy: domain.HistoryAll})
	c := &Cycle{
		Logger:      zap.NewNop(),
		Targets:     []domain.Target{{Name: "closed", URL: "http://127.0.0.1:1/health"}},
		Checker:     probe.NewHTTPChecker(500 * time.Millisecond),
		Classifier:  classifier(),
		Store:       store,
		DiagnoseDNS: true,
	}
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	doc, _ := store.Get(context.Background(), "closed")
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusDown, doc.Status)
	assert.Nil(t, doc.ResponseTimeMS)
}
