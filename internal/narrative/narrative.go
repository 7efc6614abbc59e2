// Package narrative asks a language model to explain a bill's footprint.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// Generator turns a computed bill summary into free text.
type Generator interface {
	Generate(ctx context.Context, info entity.BillInfo, fp entity.CarbonFootprint) (string, error)
}

// Disabled is used when no provider is configured; it always yields an empty narrative.
type Disabled struct{}

func (Disabled) Generate(context.Context, entity.BillInfo, entity.CarbonFootprint) (string, error) {
	return "", nil
}

// New builds the configured provider's generator.
func New(ctx context.Context, cfg common.NarrativeConfig, logger *slog.Logger) (Generator, error) {
	switch cfg.Provider {
	case "", "none":
		return Disabled{}, nil
	case "gemini":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature}, logger)
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, Temperature: cfg.Temperature}, logger), nil
	default:
		return nil, common.InvalidInputErrorf("unknown narrative provider %q", cfg.Provider)
	}
}

// BuildPrompt renders the analysis request sent to every provider.
func BuildPrompt(info entity.BillInfo, fp entity.CarbonFootprint) string {
	amount := "Not available"
	if info.Amount != nil {
		amount = "Rs. " + formatNumber(*info.Amount)
	}
	date := "Not available"
	if info.Date != nil {
		date = info.Date.String()
	}

	var b strings.Builder
	b.WriteString("Analyze this utility bill and its environmental impact:\n")
	fmt.Fprintf(&b, "- Utility Type: %s\n", fp.UtilityType)
	fmt.Fprintf(&b, "- Consumption: %s units\n", formatNumber(fp.Consumption))
	fmt.Fprintf(&b, "- Carbon Emissions: %.2f %s\n", fp.Emissions, fp.Unit)
	fmt.Fprintf(&b, "- Bill Amount: %s\n", amount)
	fmt.Fprintf(&b, "- Bill Date: %s\n", date)
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. A summary of the consumption and its environmental impact\n")
	b.WriteString("2. Comparison with typical household consumption\n")
	b.WriteString("3. Practical suggestions for reducing consumption\n")
	b.WriteString("4. Potential cost and carbon savings from implementing suggestions\n")
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
