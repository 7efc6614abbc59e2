package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
	"github.com/joseph-ayodele/carbon-tracker/internal/repository"
)

func seed(t *testing.T, store repository.AnalysisRecordStore, uploaded time.Time, file string) {
	t.Helper()
	amount := 1234.56
	date := entity.NewDate(uploaded)
	_, err := store.Create(context.Background(), &entity.AnalysisRecord{
		BillType:      "electricity",
		UploadedAt:    uploaded,
		ExtractedText: "340 kwh",
		Analysis: entity.Analysis{
			BillSummary:         entity.BillSummary{UtilityType: constants.Electricity, Consumption: 340, Amount: &amount, Date: &date},
			EnvironmentalImpact: entity.EnvironmentalImpact{CarbonEmissions: 278.8, Unit: constants.UnitKgCO2e},
			Narrative:           "Usage is typical.",
		},
		Metadata: entity.Metadata{FileName: file, FileSize: 10, ContentType: "application/pdf"},
	})
	require.NoError(t, err)
}

func TestExportRecordsXLSX(t *testing.T) {
	mr := miniredis.RunT(t)
	store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "t", nil)
	seed(t, store, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), "jan.pdf")
	seed(t, store, time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), "feb.pdf")
	seed(t, store, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), "mar.pdf")

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	b, err := NewService(store, nil).ExportRecordsXLSX(context.Background(), &from, &to)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Uploaded At", rows[0][0])
	assert.Equal(t, "feb.pdf", rows[1][7])
	assert.Equal(t, "mar.pdf", rows[2][7])
	assert.Equal(t, "electricity", rows[1][2])
	assert.Equal(t, "2024-02-10", rows[1][5])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
