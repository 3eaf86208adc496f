package repo

import (
	"context"

	"github.com/hamed0406/apistatus/internal/domain"
)

// Collection is the default name of the per-target status collection.
const Collection = "apis-status"

// HistoryOptions controls which observations land in a target's history and
// how many entries are kept (newest first out of the cap; 0 = uncapped).
type HistoryOptions struct {
	Policy domain.HistoryPolicy
	Limit  int
}

// Recorded tells the caller what was stored before this write.
type Recorded struct {
	Previous domain.Status // empty when Existed is false
	Existed  bool
	Appended bool // a history entry was added
}

// Transition reports whether the write changed the stored status.
func (r Recorded) Transition(cur domain.Status) bool {
	return r.Existed && r.Previous != cur
}

// StatusStore persists one TargetStatus document per target.
type StatusStore interface {
	// Record overwrites the latest status of name with obs and appends to the
	// history according to the store's HistoryOptions. The document is created
	// on first use.
	Record(ctx context.Context, name string, obs domain.Observation) (Recorded, error)
	// Get returns nil, nil if there's no document yet.
	Get(ctx context.Context, name string) (*domain.TargetStatus, error)
	// List returns every document ordered by name.
	List(ctx context.Context) ([]domain.TargetStatus, error)
}
