// Package parsefields turns free bill text into structured BillInfo with
// priority-ordered pattern rules.
package parsefields

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// FieldExtractor is stage 2: text -> BillInfo. The bool is false when no field
// could be recognized.
type FieldExtractor interface {
	Extract(text string) (entity.BillInfo, bool)
}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract applies each field group in order. Within a group the first rule
// that both matches and parses wins, regardless of where in the text a lower
// priority rule matched.
func (e *Extractor) Extract(text string) (entity.BillInfo, bool) {
	lower := strings.ToLower(text)
	var info entity.BillInfo
	var hits []string
	for _, group := range [][]rule{amountRules, dateRules, consumptionRules} {
		if name, ok := applyFirst(group, lower, &info); ok {
			hits = append(hits, name)
		}
	}
	if info.Empty() {
		e.logger.Warn("parsefields.empty", "chars", len(text))
		return entity.BillInfo{}, false
	}
	e.logger.Debug("parsefields.ok", "rules", hits)
	return info, true
}

func applyFirst(rules []rule, text string, info *entity.BillInfo) (string, bool) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r.parse(m, info) {
			return r.name, true
		}
	}
	return "", false
}
