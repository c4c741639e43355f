package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *failures.ToolFailure) error {
	const q = `
INSERT INTO forensic_tool_failures
  (report_id, file, tool, kind, cmd, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(f.ReportID), stringOrDash(f.File), stringOrDash(f.Tool), stringOrDash(f.Kind),
		f.Command, f.Message, created).Scan(&f.ID)
}

func (r *FailureRepository) ListByReport(ctx context.Context, reportID string, limit int) ([]*failures.ToolFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, report_id, file, tool, kind, cmd, message, created_at
FROM forensic_tool_failures
WHERE report_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, reportID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*failures.ToolFailure{}
	for rows.Next() {
		var f failures.ToolFailure
		if err := rows.Scan(&f.ID, &f.ReportID, &f.File, &f.Tool, &f.Kind, &f.Command, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
