package ledger

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		progress REAL NOT NULL DEFAULT 0,
		params_json TEXT NOT NULL DEFAULT '{}',
		error_code TEXT,
		error_message TEXT,
		cost_cents INTEGER NOT NULL DEFAULT 0,
		claimed_by TEXT,
		total_segments INTEGER NOT NULL DEFAULT 0,
		processing_seconds REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		last_heartbeat TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS segments (
		job_id TEXT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		start_seconds REAL NOT NULL,
		end_seconds REAL NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		result_key TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (job_id, idx)
	)`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}
