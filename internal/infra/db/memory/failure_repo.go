package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
)

type FailureRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []*failures.ToolFailure
}

func NewFailureRepository() *FailureRepository { return &FailureRepository{} }

func (r *FailureRepository) Save(_ context.Context, f *failures.ToolFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *f
	cp.ID = r.nextID
	f.ID = cp.ID
	r.items = append(r.items, &cp)
	return nil
}

// ListByReport returns newest entries first.
func (r *FailureRepository) ListByReport(_ context.Context, reportID string, limit int) ([]*failures.ToolFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*failures.ToolFailure{}
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].ReportID == reportID {
			cp := *r.items[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
