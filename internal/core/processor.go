package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/document"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/extract"
	"github.com/joseph-ayodele/carbon-tracker/internal/metrics"
	"github.com/joseph-ayodele/carbon-tracker/internal/narrative"
	"github.com/joseph-ayodele/carbon-tracker/internal/parsefields"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

// EmissionCalculator is stage 3: BillInfo -> footprint. ok=false means not computable.
type EmissionCalculator interface {
	Compute(info entity.BillInfo) (entity.CarbonFootprint, bool, error)
}

// Upload is a bill staged on disk. The Processor owns Path once Process is called.
type Upload struct {
	Path        string
	FileName    string
	FileSize    int64
	ContentType string
	BillType    string
}

type Config struct {
	NarrativeTimeout time.Duration // default 30s
}

// Processor runs classify -> extract text -> extract fields -> emissions ->
// narrative -> persist for one upload.
type Processor struct {
	logger    *slog.Logger
	cfg       Config
	text      extract.TextExtractor
	fields    parsefields.FieldExtractor
	emissions EmissionCalculator
	narrator  narrative.Generator
	store     repository.AnalysisRecordStore
	now       func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	text extract.TextExtractor,
	fields parsefields.FieldExtractor,
	emissions EmissionCalculator,
	narrator narrative.Generator,
	store repository.AnalysisRecordStore,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NarrativeTimeout <= 0 {
		cfg.NarrativeTimeout = 30 * time.Second
	}
	if narrator == nil {
		narrator = narrative.Disabled{}
	}
	return &Processor{
		logger:    logger,
		cfg:       cfg,
		text:      text,
		fields:    fields,
		emissions: emissions,
		narrator:  narrator,
		store:     store,
		now:       time.Now,
	}
}

// Process runs the pipeline. The uploaded file is removed before it returns,
// whatever the outcome.
func (p *Processor) Process(ctx context.Context, up Upload) (out Outcome) {
	logger := common.LoggerFromContext(ctx, p.logger).With("file_name", up.FileName)
	start := time.Now()
	defer document.Remove(up.Path, logger)
	defer func() {
		metrics.CaptureOutcome(string(out.Kind), string(out.Stage))
		attrs := []any{"kind", out.Kind, "stage", out.Stage, "elapsed_ms", time.Since(start).Milliseconds()}
		switch out.Kind {
		case OutcomeFailed:
			logger.Error("processor.failed", append(attrs, "error", out.Err)...)
		case OutcomeUnprocessable:
			logger.Warn("processor.unprocessable", attrs...)
		default:
			logger.Info("processor.ok", append(attrs, "record_id", out.RecordID)...)
		}
	}()

	// 1) classify
	kind, err := document.Classify(up.FileName)
	if err != nil {
		return failed(constants.StageClassify, err)
	}
	doc := entity.Document{
		Path:        up.Path,
		Kind:        kind,
		FileName:    up.FileName,
		FileSize:    up.FileSize,
		ContentType: up.ContentType,
	}

	// 2) text
	t0 := time.Now()
	text, err := p.text.Extract(ctx, doc)
	metrics.CaptureStage(string(constants.StageExtract), time.Since(t0))
	if err != nil {
		return failed(constants.StageExtract, err)
	}
	logger.Debug("processor.extract.ok", "source", text.Source, "pages", text.Pages)

	// 3) fields
	info, ok := p.fields.Extract(text.Text)
	if !ok {
		return Outcome{
			Kind:          OutcomeUnprocessable,
			Stage:         constants.StageFields,
			ExtractedText: text.Text,
			TextSource:    text.Source,
		}
	}

	// 4) emissions
	fp, ok, err := p.emissions.Compute(info)
	if err != nil {
		out = failed(constants.StageEmission, err)
		out.ExtractedText, out.BillInfo = text.Text, &info
		return out
	}
	if !ok {
		return Outcome{
			Kind:          OutcomeUnprocessable,
			Stage:         constants.StageEmission,
			ExtractedText: text.Text,
			TextSource:    text.Source,
			BillInfo:      &info,
		}
	}

	// 5) narrative, degraded to empty on failure
	story, degraded := p.narrate(ctx, logger, info, fp)

	// 6) persist
	rec := &entity.AnalysisRecord{
		BillType:      up.BillType,
		UploadedAt:    p.now().UTC(),
		ExtractedText: text.Text,
		Analysis:      entity.NewAnalysis(info, fp, story),
		Metadata: entity.Metadata{
			FileName:    up.FileName,
			FileSize:    up.FileSize,
			ContentType: up.ContentType,
		},
	}
	t0 = time.Now()
	id, err := p.store.Create(ctx, rec)
	metrics.CaptureStage(string(constants.StagePersist), time.Since(t0))
	if err != nil {
		out = failed(constants.StagePersist, err)
		out.ExtractedText, out.BillInfo, out.Footprint = text.Text, &info, &fp
		return out
	}

	return Outcome{
		Kind:              OutcomeSuccess,
		Stage:             constants.StageDone,
		RecordID:          id,
		Record:            rec,
		ExtractedText:     text.Text,
		TextSource:        text.Source,
		BillInfo:          &info,
		Footprint:         &fp,
		NarrativeDegraded: degraded,
	}
}

func (p *Processor) narrate(ctx context.Context, logger *slog.Logger, info entity.BillInfo, fp entity.CarbonFootprint) (string, bool) {
	nctx, cancel := context.WithTimeout(ctx, p.cfg.NarrativeTimeout)
	defer cancel()
	t0 := time.Now()
	story, err := p.narrator.Generate(nctx, info, fp)
	metrics.CaptureStage(string(constants.StageNarrative), time.Since(t0))
	if err != nil {
		metrics.IncrementNarrativeDegraded()
		logger.Warn("processor.narrative.degraded", "error", err)
		return "", true
	}
	return story, false
}
