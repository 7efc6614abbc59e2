// Package emission converts utility consumption into an estimated carbon footprint.
package emission

import (
	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// Factors are kg CO2e per consumption unit (kWh, kilolitre, SCM).
var Factors = map[constants.UtilityType]float64{
	constants.Electricity: 0.82,
	constants.Water:       0.376,
	constants.Gas:         2.02,
}

type Calculator struct {
	factors map[constants.UtilityType]float64
}

func NewCalculator() *Calculator {
	return &Calculator{factors: Factors}
}

// Compute returns ok=false when consumption or utility type is missing.
// An unrecognized utility type is an error.
func (c *Calculator) Compute(info entity.BillInfo) (entity.CarbonFootprint, bool, error) {
	if info.Consumption == nil || info.UtilityType == nil {
		return entity.CarbonFootprint{}, false, nil
	}
	utility := *info.UtilityType
	factor, ok := c.factors[utility]
	if !ok {
		return entity.CarbonFootprint{}, false, common.EmissionUnknownUtilityError(string(utility))
	}
	consumption := *info.Consumption
	return entity.CarbonFootprint{
		Emissions:      consumption * factor,
		Unit:           constants.UnitKgCO2e,
		UtilityType:    utility,
		Consumption:    consumption,
		EmissionFactor: factor,
	}, true, nil
}
