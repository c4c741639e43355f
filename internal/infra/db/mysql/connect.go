package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS forensic_reports (
  id            VARCHAR(64)  NOT NULL PRIMARY KEY,
  file          VARCHAR(512) NOT NULL,
  score         INT          NOT NULL,
  verdict       VARCHAR(32)  NOT NULL,
  reasons_json  JSON         NOT NULL,
  results_json  JSON         NOT NULL,
  json_name     VARCHAR(600) NOT NULL,
  artifact_url  VARCHAR(1024) NOT NULL DEFAULT '',
  created_at    DATETIME(6)  NOT NULL,
  KEY idx_reports_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS forensic_tool_failures (
  id          BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  report_id   VARCHAR(64)  NOT NULL,
  file        VARCHAR(512) NOT NULL,
  tool        VARCHAR(128) NOT NULL,
  kind        VARCHAR(32)  NOT NULL,
  cmd         TEXT         NOT NULL,
  message     TEXT         NOT NULL,
  created_at  DATETIME(6)  NOT NULL,
  KEY idx_failures_report (report_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS forensic_triage (
  id           VARCHAR(64)  NOT NULL PRIMARY KEY,
  report_id    VARCHAR(64)  NOT NULL,
  file         VARCHAR(512) NOT NULL,
  model        VARCHAR(128) NOT NULL,
  result_json  JSON         NOT NULL,
  created_at   DATETIME(6)  NOT NULL,
  KEY idx_triage_report (report_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return nil
}
