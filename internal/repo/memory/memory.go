package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/repo"
)

type Store struct {
	mu      sync.RWMutex
	history repo.HistoryOptions
	docs    map[string]*domain.TargetStatus
}

func New(h repo.HistoryOptions) *Store {
	return &Store{
		history: h,
		docs:    make(map[string]*domain.TargetStatus),
	}
}

func (m *Store) Record(ctx context.Context, name string, obs domain.Observation) (repo.Recorded, error) {
	if err := ctx.Err(); err != nil {
		return repo.Recorded{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec repo.Recorded
	doc, ok := m.docs[name]
	if ok {
		rec.Existed = true
		rec.Previous = doc.Status
	} else {
		doc = &domain.TargetStatus{Name: name}
		m.docs[name] = doc
	}
	doc.Apply(obs)

	if m.history.Policy.ShouldAppend(rec.Previous, rec.Existed, obs.Status) {
		doc.History = domain.TrimHistory(append(doc.History, obs.Entry()), m.history.Limit)
		rec.Appended = true
	}
	return rec, nil
}

func (m *Store) Get(ctx context.Context, name string) (*domain.TargetStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	out := doc.Clone()
	return &out, nil
}

func (m *Store) List(ctx context.Context) ([]domain.TargetStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TargetStatus, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ repo.StatusStore = (*Store)(nil)
