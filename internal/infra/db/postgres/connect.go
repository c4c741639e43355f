package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS forensic_reports (
  id           TEXT PRIMARY KEY,
  file         TEXT NOT NULL,
  score        INTEGER NOT NULL,
  verdict      TEXT NOT NULL,
  reasons_json JSONB NOT NULL,
  results_json JSONB NOT NULL,
  json_name    TEXT NOT NULL,
  artifact_url TEXT NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created ON forensic_reports (created_at)`,
	`CREATE TABLE IF NOT EXISTS forensic_tool_failures (
  id         BIGSERIAL PRIMARY KEY,
  report_id  TEXT NOT NULL,
  file       TEXT NOT NULL,
  tool       TEXT NOT NULL,
  kind       TEXT NOT NULL,
  cmd        TEXT NOT NULL,
  message    TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_report ON forensic_tool_failures (report_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS forensic_triage (
  id          TEXT PRIMARY KEY,
  report_id   TEXT NOT NULL,
  file        TEXT NOT NULL,
  model       TEXT NOT NULL,
  result_json JSONB NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_triage_report ON forensic_triage (report_id, created_at)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
