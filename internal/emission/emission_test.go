package emission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

func billInfo(consumption float64, utility constants.UtilityType) entity.BillInfo {
	return entity.BillInfo{Consumption: &consumption, UtilityType: &utility}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		utility     constants.UtilityType
		consumption float64
		want        float64
		factor      float64
	}{
		{constants.Electricity, 340, 278.8, 0.82},
		{constants.Water, 12, 4.512, 0.376},
		{constants.Gas, 5, 10.1, 2.02},
		{constants.Electricity, 0, 0, 0.82},
	}
	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(string(tt.utility), func(t *testing.T) {
			fp, ok, err := calc.Compute(billInfo(tt.consumption, tt.utility))
			require.NoError(t, err)
			require.True(t, ok)
			assert.InDelta(t, tt.want, fp.Emissions, 1e-9)
			assert.Equal(t, "kg CO2e", fp.Unit)
			assert.Equal(t, tt.utility, fp.UtilityType)
			assert.Equal(t, tt.consumption, fp.Consumption)
			assert.Equal(t, tt.factor, fp.EmissionFactor)
		})
	}
}

func TestCompute_NotComputable(t *testing.T) {
	amount := 120.0
	for _, info := range []entity.BillInfo{{}, {Amount: &amount}} {
		fp, ok, err := NewCalculator().Compute(info)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, fp)
	}
}

func TestCompute_UnknownUtility(t *testing.T) {
	_, ok, err := NewCalculator().Compute(billInfo(10, constants.UtilityType("steam")))
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrEmissionUnknownUtility)
}
