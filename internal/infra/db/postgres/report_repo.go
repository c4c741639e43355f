package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-forensics/internal/domain/forensics"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, file, score, verdict, reasons_json, results_json, json_name, artifact_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var r domain.Report
	var reasons, results []byte
	if err := row.Scan(&r.ID, &r.File, &r.Score, &r.Verdict, &reasons, &results,
		&r.JSONName, &r.ArtifactURL, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeReport(&r, reasons, results); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", r.ID, err)
	}
	return &r, nil
}

// Save insert/update Report record
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO forensic_reports
(id, file, score, verdict, reasons_json, results_json, json_name, artifact_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
 score = EXCLUDED.score,
 verdict = EXCLUDED.verdict,
 reasons_json = EXCLUDED.reasons_json,
 results_json = EXCLUDED.results_json,
 artifact_url = EXCLUDED.artifact_url;`

	reasons, results, err := encodeReport(rep)
	if err != nil {
		return err
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rep.ID, stringOrDash(rep.File), rep.Score, string(rep.Verdict),
		reasons, results, rep.JSONName, rep.ArtifactURL, created,
	)
	return err
}

// Get by ID
func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM forensic_reports WHERE id=$1 LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	return rep, err
}

func (r *ReportRepository) Latest(ctx context.Context, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + reportColumns + ` FROM forensic_reports ORDER BY created_at DESC, id DESC LIMIT $1;`
	return r.query(ctx, q, limit)
}

func (r *ReportRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) Summary(ctx context.Context, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE verdict = $1),
       COUNT(*) FILTER (WHERE verdict = $2),
       COUNT(*) FILTER (WHERE verdict = $3)
FROM forensic_reports
WHERE created_at >= $4;`
	var s domain.Summary
	err := r.db.QueryRowContext(ctx, q,
		string(domain.VerdictMalicious), string(domain.VerdictSuspicious), string(domain.VerdictClean), cut,
	).Scan(&s.Total, &s.Malicious, &s.Suspicious, &s.Clean)
	return s, err
}

func (r *ReportRepository) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + reportColumns + ` FROM forensic_reports ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2;`
	data, err := r.query(ctx, q, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forensic_reports`).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}
	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}
