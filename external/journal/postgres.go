package journal

import (
	"context"

	"github.com/husen-82/android-stt-ver2.0/internal/journal"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) journal.Recorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Record(ctx context.Context, e journal.Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO request_journal
		 (request_id, caller_id, format, size_bytes, status, processing_time_ms, chunk_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.RequestID, e.CallerID, e.Format, e.SizeBytes, e.Status, e.ProcessingTimeMs, e.ChunkCount, e.CreatedAt)
	return err
}
