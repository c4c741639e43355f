package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// Save inserts a triage record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO forensic_triage
  (id, report_id, file, model, result_json, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  model=VALUES(model), result_json=VALUES(result_json);
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	// result_json column requires valid JSON
	_, err := r.db.ExecContext(ctx, q, a.ID, stringOrDash(a.ReportID), stringOrDash(a.File),
		stringOrDash(a.Model), jsonOrEmpty(a.Result), createdAt)
	return err
}

// Paginate returns a page of triage records ordered by created_at desc
func (r *AnalystRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, report_id, file, model, result_json, created_at
FROM forensic_triage
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.ReportID, &a.File, &a.Model, &a.Result, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByReport returns the latest triage for a report, nil when none
func (r *AnalystRepository) LatestByReport(ctx context.Context, reportID string) (*domain.Analysis, error) {
	const q = `
SELECT id, report_id, file, model, result_json, created_at
FROM forensic_triage
WHERE report_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var a domain.Analysis
	err := r.db.QueryRowContext(ctx, q, reportID).Scan(&a.ID, &a.ReportID, &a.File, &a.Model, &a.Result, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
