package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/async"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/document"
)

// FSIngestor copies bills from the filesystem into the upload directory and
// queues them. Originals are never modified; the pipeline removes the copy.
// Content already queued by this ingestor (same sha256) is skipped.
type FSIngestor struct {
	queue     async.Queue
	uploadDir string
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(queue async.Queue, uploadDir string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &FSIngestor{queue: queue, uploadDir: uploadDir, logger: logger, seen: map[string]struct{}{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path, billType string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs
	kind, err := document.Classify(abs)
	if err != nil {
		return out, err
	}
	out.FileExt = constants.NormalizeExt(filepath.Ext(abs))

	hashHex, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = hashHex
	if !i.markSeen(hashHex) {
		out.Deduplicated = true
		i.logger.Info("skipping duplicate bill", "path", abs, "sha256", hashHex)
		return out, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		i.forget(hashHex)
		return out, fmt.Errorf("open: %w", err)
	}
	staged, size, err := document.Stage(i.uploadDir, filepath.Base(abs), f)
	_ = f.Close()
	if err != nil {
		i.forget(hashHex)
		return out, err
	}
	out.StagedPath = staged

	job := async.Job{
		Upload: core.Upload{
			Path:        staged,
			FileName:    filepath.Base(abs),
			FileSize:    size,
			ContentType: constants.ContentTypeFor(kind),
			BillType:    billType,
		},
		SourcePath: abs,
		TraceID:    uuid.NewString(),
	}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		document.Remove(staged, i.logger)
		i.forget(hashHex)
		return out, fmt.Errorf("enqueue: %w", err)
	}
	out.QueuedAt = time.Now().UTC()
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and queues
// every supported bill. Per-file failures are reported, not returned.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root, billType string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, path, billType)
		if err != nil {
			res.Err = err.Error()
			stats.Failed++
		} else if res.Deduplicated {
			stats.Deduplicated++
		} else {
			stats.Queued++
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) markSeen(hashHex string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[hashHex]; ok {
		return false
	}
	i.seen[hashHex] = struct{}{}
	return true
}

func (i *FSIngestor) forget(hashHex string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, hashHex)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AllowedExt reports whether a file extension is a supported bill document.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
