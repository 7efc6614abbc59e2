package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/carbon-tracker/internal/async"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "jan.pdf"), "january")
	writeFile(t, filepath.Join(root, "scans", "feb.JPG"), "february")
	writeFile(t, filepath.Join(root, "scans", "copy-of-jan.pdf"), "january")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(root, ".hidden", "mar.png"), "march")

	q := &recordingQueue{}
	uploads := t.TempDir()
	ing := NewFSIngestor(q, uploads, nil)

	results, stats, err := ing.IngestDirectory(context.Background(), root, "electricity", true)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Queued)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)
	assert.Len(t, results, 3)

	require.Len(t, q.jobs, 2)
	for _, job := range q.jobs {
		assert.Equal(t, "electricity", job.Upload.BillType)
		assert.NotEmpty(t, job.TraceID)
		assert.FileExists(t, job.Upload.Path)
		assert.Equal(t, uploads, filepath.Dir(job.Upload.Path))
		assert.FileExists(t, job.SourcePath)
	}
	byName := map[string]async.Job{}
	for _, job := range q.jobs {
		byName[job.Upload.FileName] = job
	}
	assert.Equal(t, "application/pdf", byName["jan.pdf"].Upload.ContentType)
	assert.Equal(t, "image/jpeg", byName["feb.JPG"].Upload.ContentType)
	assert.Equal(t, int64(len("february")), byName["feb.JPG"].Upload.FileSize)
}

func TestIngestPath_Unsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bill.docx")
	writeFile(t, p, "x")
	_, err := NewFSIngestor(&recordingQueue{}, t.TempDir(), nil).IngestPath(context.Background(), p, "gas")
	assert.Error(t, err)
}

func TestIngestPath_EnqueueFailureRemovesStagedCopy(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bill.pdf")
	writeFile(t, p, "x")
	uploads := t.TempDir()
	ing := NewFSIngestor(&recordingQueue{err: async.ErrQueueClosed}, uploads, nil)

	_, err := ing.IngestPath(context.Background(), p, "gas")
	assert.ErrorIs(t, err, async.ErrQueueClosed)
	left, _ := os.ReadDir(uploads)
	assert.Empty(t, left)

	// not marked as seen, so a retry is attempted again
	_, err = ing.IngestPath(context.Background(), p, "gas")
	assert.ErrorIs(t, err, async.ErrQueueClosed)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "existing.pdf"), next(t, events))

	writeFile(t, filepath.Join(root, "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, "new.png"), "new")
	assert.Equal(t, filepath.Join(root, "new.png"), next(t, events))

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no watcher event")
		return ""
	}
}
