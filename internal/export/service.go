package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

const pageSize = 100

// Service produces XLSX bytes for record exports.
type Service struct {
	store  repository.AnalysisRecordStore
	logger *slog.Logger
}

func NewService(store repository.AnalysisRecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportRecordsXLSX returns a workbook with one row per record uploaded in the
// [from, to] window (dates inclusive, UTC). Nil bounds are open.
func (s *Service) ExportRecordsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	recs, err := s.collect(ctx, dayStart(from), dayEnd(to))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Bills"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Uploaded At",
		"Bill Type",
		"Utility",
		"Consumption",
		"Amount",
		"Bill Date",
		"Emissions (kg CO2e)",
		"File Name",
		"Narrative",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		sum := r.Analysis.BillSummary
		write(1, r.UploadedAt.UTC().Format(time.RFC3339))
		write(2, r.BillType)
		write(3, string(sum.UtilityType))
		write(4, sum.Consumption)
		if sum.Amount != nil {
			write(5, *sum.Amount)
		}
		if sum.Date != nil {
			write(6, sum.Date.String())
		}
		write(7, r.Analysis.EnvironmentalImpact.CarbonEmissions)
		write(8, r.Metadata.FileName)
		write(9, truncate(r.Analysis.Narrative, 300))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 22) // uploaded
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "G", 16)
	_ = f.SetColWidth(sheet, "H", "H", 32)
	_ = f.SetColWidth(sheet, "I", "I", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// collect pages through the store in its natural order.
func (s *Service) collect(ctx context.Context, from, to *time.Time) ([]*entity.AnalysisRecord, error) {
	var out []*entity.AnalysisRecord
	for page := 1; ; page++ {
		recs, total, err := s.store.List(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if from != nil && r.UploadedAt.Before(*from) {
				continue
			}
			if to != nil && !r.UploadedAt.Before(*to) {
				continue
			}
			out = append(out, r)
		}
		if len(recs) == 0 || page*pageSize >= total {
			return out, nil
		}
	}
}

func dayStart(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// dayEnd is the exclusive upper bound: midnight after the given day.
func dayEnd(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return &d
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
