package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/internal/core"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one staged bill waiting for the pipeline.
type Job struct {
	Upload      core.Upload
	SourcePath  string // where the bill was found, for reporting
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
