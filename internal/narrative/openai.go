package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/metrics"
)

type OpenAIConfig struct {
	APIKey      string
	Model       string // default "gpt-4o-mini"
	Temperature float32
	BaseURL     string
}

// OpenAI generates narratives with the chat completions API.
type OpenAI struct {
	client openai.Client
	cfg    OpenAIConfig
	log    *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4oMini)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg, log: logger}
}

func (o *OpenAI) Generate(ctx context.Context, info entity.BillInfo, fp entity.CarbonFootprint) (string, error) {
	start := time.Now()
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(info, fp)),
		},
	}
	if o.cfg.Temperature > 0 {
		params.Temperature = openai.Float(float64(o.cfg.Temperature))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	metrics.CaptureDependency("openai", time.Since(start))
	if err != nil {
		o.log.Error("narrative.openai.failed", "model", o.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", common.NarrativeGenerationError("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", common.NarrativeGenerationError("no choices in openai response", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", common.NarrativeGenerationError("openai returned no text", nil)
	}
	o.log.Info("narrative.openai.ok", "model", o.cfg.Model, "chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
