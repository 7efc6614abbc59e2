package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/metrics"
	"github.com/joseph-ayodele/carbon-tracker/internal/ocr"
)

type Config struct {
	NativeThreshold int           // native text longer than this (in characters) skips OCR; default 100
	PageWorkers     int           // pages OCR'd concurrently; default 4
	PageTimeout     time.Duration // per-page rasterize+OCR budget; 0 = none
	ScratchDir      string        // parent of per-document page directories; "" -> os.TempDir()
}

// Extractor reads native PDF text and falls back to per-page OCR for scanned documents.
type Extractor struct {
	cfg    Config
	engine ocr.Engine
	raster ocr.Rasterizer
	native NativeReader
	pages  PageCounter
	logger *slog.Logger
}

type Option func(*Extractor)

func WithNativeReader(r NativeReader) Option {
	return func(e *Extractor) {
		if r != nil {
			e.native = r
		}
	}
}

func WithPageCounter(c PageCounter) Option {
	return func(e *Extractor) {
		if c != nil {
			e.pages = c
		}
	}
}

func NewExtractor(cfg Config, engine ocr.Engine, raster ocr.Rasterizer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NativeThreshold <= 0 {
		cfg.NativeThreshold = 100
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 4
	}
	e := &Extractor{
		cfg:    cfg,
		engine: engine,
		raster: raster,
		native: pdfTextReader{pageTimeout: cfg.PageTimeout, logger: logger},
		pages:  pdfcpuPageCounter{},
		logger: logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on the document kind.
func (e *Extractor) Extract(ctx context.Context, doc entity.Document) (entity.ExtractedText, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger)
	logger.Debug("extract.start", "path", doc.Path, "kind", doc.Kind)

	var (
		out entity.ExtractedText
		err error
	)
	switch {
	case doc.Kind == constants.PDF:
		out, err = e.extractPDF(ctx, doc.Path, logger)
	case doc.Kind.IsImage():
		var txt string
		txt, err = e.recognize(ctx, doc.Path)
		if err != nil {
			err = common.OCRError("recognize image", err)
		}
		out = entity.ExtractedText{Text: txt, Source: constants.TextSourceOCR, Pages: 1}
	default:
		err = common.UnsupportedFileTypeError(string(doc.Kind))
	}
	if err != nil {
		return entity.ExtractedText{}, err
	}
	out.Duration = time.Since(start)
	metrics.CaptureTextSource(string(out.Source))
	logger.Info("extract.ok", "source", out.Source, "pages", out.Pages,
		"chars", utf8.RuneCountInString(out.Text), "duration_ms", out.Duration.Milliseconds())
	return out, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string, logger *slog.Logger) (entity.ExtractedText, error) {
	text, nativePages, err := e.native.ReadText(ctx, path)
	if err != nil {
		return entity.ExtractedText{}, common.DocumentParseError("read pdf", err)
	}
	chars := utf8.RuneCountInString(strings.TrimSpace(text))
	if chars > e.cfg.NativeThreshold {
		return entity.ExtractedText{Text: text, Source: constants.TextSourceNative, Pages: nativePages}, nil
	}

	pages, err := e.pages.CountPages(path)
	if err != nil || pages <= 0 {
		if nativePages <= 0 {
			return entity.ExtractedText{}, common.DocumentParseError("count pdf pages", err)
		}
		logger.Warn("page count failed; using parser count", "pages", nativePages, "error", err)
		pages = nativePages
	}
	logger.Info("extract.ocr_fallback", "native_chars", chars, "pages", pages)

	merged, err := e.ocrPages(ctx, path, pages)
	if err != nil {
		return entity.ExtractedText{}, err
	}
	return entity.ExtractedText{Text: merged, Source: constants.TextSourceOCR, Pages: pages}, nil
}

// ocrPages rasterizes and recognizes every page in parallel. Texts are stored
// by page index so the merged string keeps document order.
func (e *Extractor) ocrPages(ctx context.Context, path string, pages int) (string, error) {
	dir, err := os.MkdirTemp(e.cfg.ScratchDir, "carbon-pages-*")
	if err != nil {
		return "", common.OCRError("create page dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Error("failed to remove page dir", "dir", dir, "error", err)
		}
	}()

	texts := make([]string, pages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i := range texts {
		page := i + 1
		g.Go(func() error {
			txt, err := e.ocrPage(gctx, path, page, dir)
			if err != nil {
				return err
			}
			texts[i] = txt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(texts, " "), nil
}

// ocrPage owns the page image: it exists only between rasterization and the end of recognition.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int, dir string) (string, error) {
	if e.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout)
		defer cancel()
	}
	img, err := e.raster.RasterizePage(ctx, path, page, dir)
	if err != nil {
		return "", common.OCRError(fmt.Sprintf("rasterize page %d", page), err)
	}
	defer e.removeImage(img)

	txt, err := e.recognize(ctx, img)
	if err != nil {
		return "", common.OCRError(fmt.Sprintf("recognize page %d", page), err)
	}
	return txt, nil
}

func (e *Extractor) recognize(ctx context.Context, imagePath string) (string, error) {
	start := time.Now()
	res, err := e.engine.Recognize(ctx, imagePath)
	metrics.CaptureOCRPage(e.engine.Name(), err)
	metrics.CaptureDependency("ocr", time.Since(start))
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (e *Extractor) removeImage(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.logger.Error("failed to remove page image", "path", path, "error", err)
	}
}
