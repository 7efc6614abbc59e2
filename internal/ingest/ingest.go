// Package ingest feeds bills found on the local filesystem into the processing queue.
package ingest

import (
	"context"
	"time"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	StagedPath   string
	Deduplicated bool
	HashHex      string
	FileExt      string
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Queued       uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch command depends on.
type Ingestor interface {
	// IngestPath stages and queues a single bill.
	IngestPath(ctx context.Context, path, billType string) (IngestionResult, error)
	// IngestDirectory queues all supported bills under root.
	IngestDirectory(ctx context.Context, root, billType string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
