package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/internal/app"
	"github.com/joseph-ayodele/carbon-tracker/internal/async"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/export"
	"github.com/joseph-ayodele/carbon-tracker/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type tally struct {
	mu            sync.Mutex
	success       int
	unprocessable int
	failed        int
}

func (t *tally) record(_ async.Job, out core.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch out.Kind {
	case core.OutcomeSuccess:
		t.success++
	case core.OutcomeUnprocessable:
		t.unprocessable++
	default:
		t.failed++
	}
}

func (t *tally) log(logger *slog.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	logger.Info("processing done", "success", t.success, "unprocessable", t.unprocessable, "failed", t.failed)
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file (defaults to $CONFIG_FILE)")
		inmem      = flag.Bool("inmem", true, "use an in-memory SQLite record store instead of the configured one")
		dir        = flag.String("dir", "", "directory to process bills from (required)")
		billType   = flag.String("bill-type", "utility", "bill type label stored with every record")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr    = flag.String("from", "", "from date YYYY-MM-DD")
		toStr      = flag.String("to", "", "to date YYYY-MM-DD")
		watch      = flag.Bool("watch", false, "keep watching the directory for new bills until interrupted")
		workers    = flag.Int("workers", 2, "bills processed concurrently")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "bills.xlsx")
	}
	from, err := parseDate(*fromStr)
	if err != nil {
		printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *inmem {
		cfg.Store.Backend = "sqlite"
		cfg.Store.DSN = ""
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	logger := common.NewLogger(cfg.Log, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, batchOptions{
		dir:      *dir,
		billType: *billType,
		out:      *out,
		from:     from,
		to:       to,
		watch:    *watch,
		workers:  *workers,
	}, logger)
	stop()
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

type batchOptions struct {
	dir      string
	billType string
	out      string
	from, to *time.Time
	watch    bool
	workers  int
}

// run ingests, drains the queue and writes the export. Staging files, the OCR
// engine and the store are released before it returns.
func run(ctx context.Context, cfg *common.Config, opts batchOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	staging, err := os.MkdirTemp("", "bill-batch-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)
	cfg.Server.UploadDir = staging

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	var counts tally
	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(opts.workers),
		async.WithProcessTimeout(cfg.Server.RequestTimeout.Duration),
		async.WithResultFunc(counts.record),
	)
	drained := false
	drain := func() {
		if drained {
			return
		}
		drained = true
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		queue.Shutdown(drainCtx)
	}
	defer drain()
	ingestor := ingest.NewFSIngestor(queue, staging, logger)

	logger.Info("starting ingestion", "dir", opts.dir, "bill_type", opts.billType)
	_, stats, err := ingestor.IngestDirectory(ctx, opts.dir, opts.billType, true)
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}
	logger.Info("ingestion done",
		"scanned", stats.Scanned, "matched", stats.Matched, "queued", stats.Queued,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)

	if opts.watch {
		watchDir(ctx, ingestor, opts.dir, opts.billType, logger)
	}

	drain()
	counts.log(logger)

	b, err := export.NewService(a.Store, logger).ExportRecordsXLSX(context.Background(), opts.from, opts.to)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(opts.out, b, 0o644); err != nil {
		return fmt.Errorf("write export %s: %w", opts.out, err)
	}
	logger.Info("export written", "path", opts.out, "bytes", len(b))
	return nil
}

func watchDir(ctx context.Context, ingestor ingest.Ingestor, dir, billType string, logger *slog.Logger) {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{dir},
		Debounce:   500 * time.Millisecond,
		SkipHidden: true,
	}, logger)
	if err != nil {
		logger.Warn("watch disabled", "error", err)
		return
	}
	logger.Info("watching for new bills", "dir", dir)
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return
			}
			if _, err := ingestor.IngestPath(ctx, p, billType); err != nil {
				logger.Warn("ingest failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := entity.ParseYMD(s)
	if err != nil {
		return nil, err
	}
	return &d.Time, nil
}
