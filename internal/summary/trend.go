package summary

import (
	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100.0

// CompareTrend returns the change from previous to current.
//
// Special cases:
//   - previous is zero and current is not: 100% in the direction of current.
//   - both are zero: 0% and DirectionSame.
func CompareTrend(current, previous float64) models.Trend {
	delta := current - previous
	t := models.Trend{Value: delta, Direction: direction(delta)}
	switch {
	case previous == 0 && current == 0:
		t.Percentage = 0
	case previous == 0:
		t.Percentage = percentMultiplier
	default:
		t.Percentage = delta / previous * percentMultiplier
		if previous < 0 {
			t.Percentage = -t.Percentage
		}
	}
	return t
}

func direction(delta float64) models.Direction {
	switch {
	case delta > 0:
		return models.DirectionUp
	case delta < 0:
		return models.DirectionDown
	default:
		return models.DirectionSame
	}
}

// BuildTrends compares current with the summary of the previous period.
func BuildTrends(current, previous *models.EmissionSummary) *models.Trends {
	t := &models.Trends{
		Previous:       previous.Period,
		TotalEmissions: CompareTrend(current.TotalEmissions.CO2e, previous.TotalEmissions.CO2e),
		ByScope:        make(map[string]models.Trend, 3),
	}
	for _, st := range []emission.ScopeType{emission.Scope1, emission.Scope2, emission.Scope3} {
		key := string(st)
		t.ByScope[key] = CompareTrend(current.ByScope[key].CO2e, previous.ByScope[key].CO2e)
	}
	return t
}
