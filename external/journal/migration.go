package journal

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS request_journal (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		request_id UUID NOT NULL,
		caller_id TEXT NOT NULL,
		format TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		status TEXT NOT NULL,
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_request_journal_caller ON request_journal (caller_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_request_journal_status ON request_journal (status, created_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
