package entity

import (
	"time"

	"github.com/joseph-ayodele/carbon-tracker/constants"
)

// AnalysisRecord is the persisted result of one successful pipeline run.
// It is written once and never updated.
type AnalysisRecord struct {
	ID            string    `json:"id"`
	BillType      string    `json:"bill_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
	ExtractedText string    `json:"extracted_text"`
	Analysis      Analysis  `json:"analysis"`
	Metadata      Metadata  `json:"metadata"`
}

type Analysis struct {
	BillSummary         BillSummary         `json:"bill_summary"`
	EnvironmentalImpact EnvironmentalImpact `json:"environmental_impact"`
	Narrative           string              `json:"narrative"`
}

type BillSummary struct {
	UtilityType constants.UtilityType `json:"utility_type"`
	Consumption float64               `json:"consumption"`
	Amount      *float64              `json:"amount"`
	Date        *Date                 `json:"date"`
}

type EnvironmentalImpact struct {
	CarbonEmissions float64 `json:"carbon_emissions"`
	Unit            string  `json:"unit"`
}

type Metadata struct {
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// NewAnalysis assembles the analysis block from the computed stages.
func NewAnalysis(info BillInfo, fp CarbonFootprint, narrative string) Analysis {
	return Analysis{
		BillSummary: BillSummary{
			UtilityType: fp.UtilityType,
			Consumption: fp.Consumption,
			Amount:      info.Amount,
			Date:        info.Date,
		},
		EnvironmentalImpact: EnvironmentalImpact{
			CarbonEmissions: fp.Emissions,
			Unit:            fp.Unit,
		},
		Narrative: narrative,
	}
}
