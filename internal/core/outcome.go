package core

import (
	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// OutcomeKind separates completed runs, business non-matches and faults.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeUnprocessable OutcomeKind = "unprocessable"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome is the tagged result of one pipeline run. Stage names the step that
// produced it; partial data computed before that step is echoed for diagnosis.
type Outcome struct {
	Kind  OutcomeKind
	Stage constants.Stage
	Err   error

	RecordID          string
	Record            *entity.AnalysisRecord
	ExtractedText     string
	TextSource        constants.TextSource
	BillInfo          *entity.BillInfo
	Footprint         *entity.CarbonFootprint
	NarrativeDegraded bool
}

func failed(stage constants.Stage, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Stage: stage, Err: err}
}
