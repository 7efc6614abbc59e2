package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// CLIEngine runs the tesseract binary and groups its TSV word output into lines.
// It needs no cgo and suits hosts that only have the tesseract package installed.
type CLIEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewCLIEngine(cfg Config, runner Runner, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &CLIEngine{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

// Init checks that the binary resolves.
func (e *CLIEngine) Init(_ context.Context) error {
	if _, ok := e.runner.(ExecRunner); !ok {
		return nil
	}
	if _, err := exec.LookPath(e.cfg.Tesseract); err != nil {
		return fmt.Errorf("tesseract binary: %w", err)
	}
	return nil
}

func (e *CLIEngine) Close() error { return nil }

func (e *CLIEngine) Recognize(ctx context.Context, imagePath string) (Result, error) {
	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D] tsv
	args := []string{imagePath, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return Result{Fragments: parseTSVLines(string(out))}, nil
}

// parseTSVLines groups word rows (level 5) by block/paragraph/line in the
// order tesseract emits them.
func parseTSVLines(tsv string) []string {
	type lineKey struct{ page, block, par, line string }
	var (
		order []lineKey
		words = map[lineKey][]string{}
	)
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		k := lineKey{cols[1], cols[2], cols[3], cols[4]}
		if _, seen := words[k]; !seen {
			order = append(order, k)
		}
		words[k] = append(words[k], text)
	}
	fragments := make([]string, 0, len(order))
	for _, k := range order {
		fragments = append(fragments, strings.Join(words[k], " "))
	}
	return fragments
}
