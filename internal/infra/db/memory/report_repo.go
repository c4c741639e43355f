package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

// DefaultMaxReports bounds the index when no limit is given.
const DefaultMaxReports = 1000

// ReportRepository keeps reports in process memory. Used when no database
// driver is configured. Only the newest maxReports are kept; reports carry
// full tool output, so an unbounded map grows with every analysis.
type ReportRepository struct {
	mu         sync.RWMutex
	reports    map[domain.ReportID]*domain.Report
	maxReports int
	now        func() time.Time
}

// NewReportRepository creates an index holding at most maxReports reports
// (DefaultMaxReports when maxReports <= 0).
func NewReportRepository(maxReports int) *ReportRepository {
	if maxReports <= 0 {
		maxReports = DefaultMaxReports
	}
	return &ReportRepository{
		reports:    make(map[domain.ReportID]*domain.Report),
		maxReports: maxReports,
		now:        time.Now,
	}
}

func (r *ReportRepository) Save(_ context.Context, rep *domain.Report) error {
	cp := *rep
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = &cp
	for len(r.reports) > r.maxReports {
		r.evictOldest()
	}
	return nil
}

// evictOldest buang laporan paling lama; caller holds mu.
func (r *ReportRepository) evictOldest() {
	var oldest *domain.Report
	for _, rep := range r.reports {
		if oldest == nil || newer(oldest, rep) {
			oldest = rep
		}
	}
	if oldest != nil {
		delete(r.reports, oldest.ID)
	}
}

// newer orders by creation time, then id, newest first.
func newer(a, b *domain.Report) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *ReportRepository) Get(_ context.Context, id domain.ReportID) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	cp := *rep
	return &cp, nil
}

// sorted returns copies, newest first.
func (r *ReportRepository) sorted() []*domain.Report {
	r.mu.RLock()
	out := make([]*domain.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		cp := *rep
		out = append(out, &cp)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

func (r *ReportRepository) Latest(_ context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	all := r.sorted()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *ReportRepository) Summary(_ context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := r.now().AddDate(0, 0, -sinceDays)
	var s domain.Summary
	for _, rep := range r.sorted() {
		if rep.CreatedAt.Before(cut) {
			continue
		}
		s.Total++
		switch rep.Verdict {
		case domain.VerdictMalicious:
			s.Malicious++
		case domain.VerdictSuspicious:
			s.Suspicious++
		default:
			s.Clean++
		}
	}
	return s, nil
}

func (r *ReportRepository) Paginate(_ context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	all := r.sorted()
	total := int64(len(all))
	start := (page - 1) * pageSize
	data := []*domain.Report{}
	if start < len(all) {
		end := min(start+pageSize, len(all))
		data = all[start:end]
	}
	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}
