package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Rasterizer renders single PDF pages to PNG files.
type Rasterizer interface {
	RasterizePage(ctx context.Context, pdfPath string, page int, dir string) (string, error)
}

// PdftoppmRasterizer shells out to poppler's pdftoppm.
type PdftoppmRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPdftoppmRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PdftoppmRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &PdftoppmRasterizer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

// RasterizePage writes page (1-based) of pdfPath to dir/page-<n>.png and returns its path.
func (r *PdftoppmRasterizer) RasterizePage(ctx context.Context, pdfPath string, page int, dir string) (string, error) {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%d", page))
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <dir/page-N>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", strconv.Itoa(r.cfg.DPI), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	out := prefix + ".png"
	if err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("pdftoppm page %d produced no image: %w", page, statErr)
	}
	r.logger.Debug("page rasterized", "page", page, "path", out)
	return out, nil
}
