package parsefields

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

// rule pairs a matcher with the parser for its first match. A rule applies
// when its pattern matches and parse accepts the match.
type rule struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string, info *entity.BillInfo) bool
}

var amountRules = []rule{
	{
		name:  "amount.currency",
		re:    regexp.MustCompile(`(?:rs\.?|inr|₹)\s*(\d+(?:,\d+)*(?:\.\d{2})?)`),
		parse: parseAmount,
	},
}

// Date families in priority order. Only the first match of a family is
// parsed; a failure falls through to the next family.
var dateRules = []rule{
	{
		name:  "date.numeric",
		re:    regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`),
		parse: parseNumericDate,
	},
	{
		name:  "date.month_name",
		re:    regexp.MustCompile(`(\d{1,2})\s(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s?(\d{2,4})`),
		parse: parseMonthNameDate,
	},
}

// Consumption rules in fixed utility priority: electricity, water, gas.
// The first matching rule sets consumption and utility type together.
var consumptionRules = []rule{
	consumptionRule(constants.Electricity, `(\d+(?:\.\d+)?)\s*(?:kwh|units)`),
	consumptionRule(constants.Water, `(\d+(?:\.\d+)?)\s*(?:kl|kilolitres|litres)`),
	consumptionRule(constants.Gas, `(\d+(?:\.\d+)?)\s*(?:mmbtu|cubic\s*meters|scm)`),
}

func consumptionRule(utility constants.UtilityType, pattern string) rule {
	return rule{
		name: "consumption." + string(utility),
		re:   regexp.MustCompile(pattern),
		parse: func(m []string, info *entity.BillInfo) bool {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return false
			}
			u := utility
			info.Consumption = &v
			info.UtilityType = &u
			return true
		},
	}
}

func parseAmount(m []string, info *entity.BillInfo) bool {
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return false
	}
	info.Amount = &v
	return true
}

// parseNumericDate reads DD/MM/YYYY or DD-MM-YYYY, day first. Two-digit
// years follow time.Parse's 06 rule.
func parseNumericDate(m []string, info *entity.BillInfo) bool {
	s := strings.ReplaceAll(m[0], "-", "/")
	layout := "2/1/2006"
	if len(s)-strings.LastIndex(s, "/")-1 == 2 {
		layout = "2/1/06"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return false
	}
	d := entity.NewDate(t)
	info.Date = &d
	return true
}

func parseMonthNameDate(m []string, info *entity.BillInfo) bool {
	day, mon, year := m[1], m[2], m[3]
	layout := "2 Jan 2006"
	switch len(year) {
	case 2:
		layout = "2 Jan 06"
	case 4:
	default:
		return false
	}
	t, err := time.Parse(layout, day+" "+strings.ToUpper(mon[:1])+mon[1:]+" "+year)
	if err != nil {
		return false
	}
	d := entity.NewDate(t)
	info.Date = &d
	return true
}
