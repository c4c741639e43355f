package memory

import (
	"context"
	"sync"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/analyst"
)

type AnalystRepository struct {
	mu    sync.Mutex
	items []*analyst.Analysis
}

func NewAnalystRepository() *AnalystRepository { return &AnalystRepository{} }

// Save inserts or replaces by ID.
func (r *AnalystRepository) Save(_ context.Context, a *analyst.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	for i, it := range r.items {
		if it.ID == a.ID {
			r.items[i] = &cp
			return nil
		}
	}
	r.items = append(r.items, &cp)
	return nil
}

// Paginate returns a page ordered newest first.
func (r *AnalystRepository) Paginate(_ context.Context, page, pageSize int) ([]*analyst.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*analyst.Analysis{}
	skip := (page - 1) * pageSize
	for i := len(r.items) - 1; i >= 0 && len(out) < pageSize; i-- {
		if skip > 0 {
			skip--
			continue
		}
		cp := *r.items[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AnalystRepository) LatestByReport(_ context.Context, reportID string) (*analyst.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].ReportID == reportID {
			cp := *r.items[i]
			return &cp, nil
		}
	}
	return nil, nil
}
