package parsefields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/carbon-tracker/constants"
)

func TestExtract_FullBill(t *testing.T) {
	info, ok := NewExtractor(nil).Extract("Total Rs. 1,234.56 due on 12/05/2023, consumption 340 kWh")
	require.True(t, ok)

	require.NotNil(t, info.Amount)
	assert.InDelta(t, 1234.56, *info.Amount, 1e-9)
	require.NotNil(t, info.Date)
	assert.Equal(t, "2023-05-12", info.Date.String())
	require.NotNil(t, info.Consumption)
	assert.InDelta(t, 340.0, *info.Consumption, 1e-9)
	require.NotNil(t, info.UtilityType)
	assert.Equal(t, constants.Electricity, *info.UtilityType)
}

func TestExtract_UtilityPriority(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		utility     constants.UtilityType
		consumption float64
	}{
		{"electricity after water", "Water used: 12 KL. Electricity: 150 kWh", constants.Electricity, 150},
		{"electricity before water", "Units 90 units, water 7 kilolitres", constants.Electricity, 90},
		{"water over gas", "Gas 3 SCM and 18 litres", constants.Water, 18},
		{"gas only", "Consumed 4.5 mmbtu this cycle", constants.Gas, 4.5},
		{"gas cubic meters", "Reading: 32 cubic meters", constants.Gas, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := NewExtractor(nil).Extract(tt.text)
			require.True(t, ok)
			require.NotNil(t, info.UtilityType)
			require.NotNil(t, info.Consumption)
			assert.Equal(t, tt.utility, *info.UtilityType)
			assert.InDelta(t, tt.consumption, *info.Consumption, 1e-9)
		})
	}
}

func TestExtract_NoInformation(t *testing.T) {
	for _, text := range []string{"", "Thank you for being a valued customer", "Account 12-AB"} {
		info, ok := NewExtractor(nil).Extract(text)
		assert.False(t, ok, text)
		assert.True(t, info.Empty(), text)
	}
}

func TestExtract_Amount(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"INR 2,50,000.00 payable", 250000},
		{"₹ 799 only", 799},
		{"rs 45.10 then Rs. 99.00", 45.10},
	}
	for _, tt := range tests {
		info, ok := NewExtractor(nil).Extract(tt.text)
		require.True(t, ok, tt.text)
		require.NotNil(t, info.Amount, tt.text)
		assert.InDelta(t, tt.want, *info.Amount, 1e-9, tt.text)
		assert.Nil(t, info.Consumption)
		assert.Nil(t, info.UtilityType)
	}
}

func TestExtract_Dates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"slashes", "billed 03/11/2024", "2024-11-03"},
		{"dashes", "billed 3-11-2024", "2024-11-03"},
		{"two digit year", "billed 03/11/24", "2024-11-03"},
		{"month name", "issued 5 March 2024", "2024-03-05"},
		{"short month no space before year", "issued 17 sep2023", "2023-09-17"},
		{"numeric parse failure falls through", "due 31/02/2023, issued 1 feb 2023", "2023-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := NewExtractor(nil).Extract(tt.text)
			require.True(t, ok)
			require.NotNil(t, info.Date)
			assert.Equal(t, tt.want, info.Date.String())
		})
	}
}

func TestExtract_OnlyFirstMatchPerFamily(t *testing.T) {
	info, ok := NewExtractor(nil).Extract("Rs. 10 period 45/13/2023 to 01/02/2023")
	require.True(t, ok)
	assert.Nil(t, info.Date)
	require.NotNil(t, info.Amount)
}

func TestExtract_ConsumptionAndUtilityTogether(t *testing.T) {
	texts := []string{
		"Rs. 100 on 01/01/2024",
		"340 kwh",
		"nothing here",
		"12 kl water",
	}
	for _, text := range texts {
		info, _ := NewExtractor(nil).Extract(text)
		assert.Equal(t, info.Consumption == nil, info.UtilityType == nil, text)
	}
}
