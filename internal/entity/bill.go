package entity

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/constants"
)

// Document is an uploaded bill staged on local disk for one pipeline run.
type Document struct {
	Path        string
	Kind        constants.DocumentKind
	FileName    string
	FileSize    int64
	ContentType string
}

// ExtractedText is the best available text for a document.
type ExtractedText struct {
	Text     string
	Source   constants.TextSource
	Pages    int
	Duration time.Duration
}

// BillInfo holds the fields found in bill text. Any subset may be nil;
// Consumption and UtilityType are always set together.
type BillInfo struct {
	Amount      *float64               `json:"amount"`
	Date        *Date                  `json:"date"`
	Consumption *float64               `json:"consumption"`
	UtilityType *constants.UtilityType `json:"utility_type"`
}

// Empty reports whether no field was found.
func (b BillInfo) Empty() bool {
	return b.Amount == nil && b.Date == nil && b.Consumption == nil && b.UtilityType == nil
}

// CarbonFootprint is the emission estimate for one bill.
type CarbonFootprint struct {
	Emissions      float64               `json:"carbon_emissions"`
	Unit           string                `json:"unit"`
	UtilityType    constants.UtilityType `json:"utility_type"`
	Consumption    float64               `json:"consumption"`
	EmissionFactor float64               `json:"emission_factor"`
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate strips the time of day to midnight UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseYMD parses a YYYY-MM-DD string.
func ParseYMD(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseYMD(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
