package journal

import (
	"context"
	"time"
)

// Entry is the audit record of one transcription request. It carries
// request metadata only, never transcript text.
type Entry struct {
	RequestID        string
	CallerID         string
	Format           string
	SizeBytes        int
	Status           string
	ProcessingTimeMs int64
	ChunkCount       int
	CreatedAt        time.Time
}

// Recorder persists request entries. Recording is best-effort: callers
// log failures but never fail the request over them.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NopRecorder discards entries. Used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(_ context.Context, _ Entry) error { return nil }
