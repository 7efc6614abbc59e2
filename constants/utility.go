package constants

type UtilityType string

const (
	Electricity UtilityType = "electricity"
	Water       UtilityType = "water"
	Gas         UtilityType = "gas"
)

// UnitKgCO2e is the unit of every emission estimate.
const UnitKgCO2e = "kg CO2e"

var allUtilities = []UtilityType{Electricity, Water, Gas}

func AsStringSlice() []string {
	result := make([]string, len(allUtilities))
	for i, u := range allUtilities {
		result[i] = string(u)
	}
	return result
}
