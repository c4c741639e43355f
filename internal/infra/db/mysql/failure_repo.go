package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/automaton-forensics/internal/domain/failures"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *failures.ToolFailure) error {
	const q = `
INSERT INTO forensic_tool_failures
  (report_id, file, tool, kind, cmd, message, created_at)
VALUES (?,?,?,?,?,?,?)
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.ReportID), stringOrDash(f.File), stringOrDash(f.Tool), stringOrDash(f.Kind),
		f.Command, f.Message, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *FailureRepository) ListByReport(ctx context.Context, reportID string, limit int) ([]*failures.ToolFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, report_id, file, tool, kind, cmd, message, created_at
FROM forensic_tool_failures
WHERE report_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
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
