package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/metrics"
)

type GeminiConfig struct {
	APIKey      string
	Model       string  // default "gemini-2.5-flash"
	Temperature float32 // 0 leaves the model default
	BaseURL     string  // override for tests and proxies
}

// Gemini generates narratives with the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	log    *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, common.NarrativeGenerationError("create gemini client", err)
	}
	return &Gemini{client: client, cfg: cfg, log: logger}, nil
}

func (g *Gemini) Generate(ctx context.Context, info entity.BillInfo, fp entity.CarbonFootprint) (string, error) {
	start := time.Now()
	var gc *genai.GenerateContentConfig
	if g.cfg.Temperature > 0 {
		gc = &genai.GenerateContentConfig{Temperature: genai.Ptr(g.cfg.Temperature)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(BuildPrompt(info, fp)), gc)
	metrics.CaptureDependency("gemini", time.Since(start))
	if err != nil {
		g.log.Error("narrative.gemini.failed", "model", g.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", common.NarrativeGenerationError("gemini generate", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", common.NarrativeGenerationError("gemini returned no text", nil)
	}
	g.log.Info("narrative.gemini.ok", "model", g.cfg.Model, "chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
