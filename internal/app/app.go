// Package app wires configuration into a ready-to-run bill pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/emission"
	"github.com/joseph-ayodele/carbon-tracker/internal/extract"
	"github.com/joseph-ayodele/carbon-tracker/internal/narrative"
	"github.com/joseph-ayodele/carbon-tracker/internal/ocr"
	"github.com/joseph-ayodele/carbon-tracker/internal/parsefields"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

// App holds the long-lived pipeline components. Close releases them.
type App struct {
	Store     repository.Store
	Engine    ocr.Engine
	Extractor *extract.Extractor
	Processor *core.Processor
	logger    *slog.Logger
}

// NewEngine returns the configured OCR backend, not yet initialized.
func NewEngine(cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	ocfg := OCRSettings(cfg)
	switch cfg.Engine {
	case "", "tesseract":
		return ocr.NewTesseractEngine(ocfg, logger), nil
	case "cli":
		return ocr.NewCLIEngine(ocfg, ocr.NewExecRunner(logger), logger), nil
	default:
		return nil, common.InvalidInputErrorf("unknown ocr engine %q", cfg.Engine)
	}
}

// OCRSettings maps the OCR config section onto engine settings.
func OCRSettings(cfg common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftoppm:    cfg.Pdftoppm,
		Tesseract:   cfg.Tesseract,
		Language:    cfg.Language,
		TessdataDir: cfg.TessdataDir,
		DPI:         cfg.DPI,
		PoolSize:    cfg.PoolSize,
		PSM:         cfg.PSM,
	}
}

// NewExtractor builds the text extractor around an initialized engine.
func NewExtractor(cfg common.OCRConfig, scratchDir string, engine ocr.Engine, logger *slog.Logger) *extract.Extractor {
	raster := ocr.NewPdftoppmRasterizer(OCRSettings(cfg), ocr.NewExecRunner(logger), logger)
	return extract.NewExtractor(extract.Config{
		NativeThreshold: cfg.NativeThreshold,
		PageWorkers:     cfg.PageWorkers,
		PageTimeout:     cfg.PageTimeout.Duration,
		ScratchDir:      scratchDir,
	}, engine, raster, logger)
}

// New opens the store, starts the OCR engine and assembles the processor.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := repository.NewStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := NewEngine(cfg.OCR, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := engine.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init ocr engine %s: %w", engine.Name(), err)
	}

	narrator, err := narrative.New(ctx, cfg.Narrative, logger)
	if err != nil {
		_ = engine.Close()
		_ = store.Close()
		return nil, fmt.Errorf("narrative: %w", err)
	}

	extractor := NewExtractor(cfg.OCR, cfg.Server.UploadDir, engine, logger)
	proc := core.NewProcessor(logger,
		core.Config{NarrativeTimeout: cfg.Narrative.Timeout.Duration},
		extractor,
		parsefields.NewExtractor(logger),
		emission.NewCalculator(),
		narrator,
		store,
	)
	logger.Info("app.ready",
		"store", cfg.Store.Backend,
		"ocr_engine", engine.Name(),
		"narrative", cfg.Narrative.Provider,
	)
	return &App{Store: store, Engine: engine, Extractor: extractor, Processor: proc, logger: logger}, nil
}

func (a *App) Close() {
	if err := a.Engine.Close(); err != nil {
		a.logger.Warn("app.close.ocr", "error", err)
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("app.close.store", "error", err)
	}
}
