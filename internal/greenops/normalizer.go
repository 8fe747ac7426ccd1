package greenops

import (
	"math"
	"strings"
)

// unitFactor returns the kilogram multiplier for a mass unit. Matching is
// case-insensitive and ignores a trailing "CO2e" and surrounding spaces, so
// "tCO2e", "T" and " kg " are all accepted.
func unitFactor(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSpace(strings.TrimSuffix(u, "co2e"))
	switch u {
	case "g", "gram", "grams":
		return GramsToKg, true
	case "kg", "kilogram", "kilograms", "":
		return KgToKg, true
	case "t", "tonne", "tonnes", "ton", "tons", "mt":
		return TonsToKg, true
	case "lb", "lbs", "pound", "pounds":
		return PoundsToKg, true
	default:
		return 0, false
	}
}

// NormalizeToKg converts an emission mass in any recognized unit to
// kilograms. An empty unit is read as kilograms.
//
// It returns ErrCalculationOverflow for NaN or Inf inputs and results,
// ErrNegativeValue for negative values and ErrInvalidUnit for unknown units.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}
	factor, ok := unitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}
	result := value * factor
	if math.IsInf(result, 0) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}

// IsRecognizedUnit reports whether NormalizeToKg accepts unit.
func IsRecognizedUnit(unit string) bool {
	_, ok := unitFactor(unit)
	return ok
}

// KgToTonnes converts kilograms to tonnes.
func KgToTonnes(kg float64) float64 {
	return kg / KgPerTonne
}

// NormalizePercent reads v as a fraction in [0, 1]. Values above 1 are
// taken to be percentages, so 40 and 0.4 both give 0.4.
func NormalizePercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v /= 100
	}
	return math.Max(0, math.Min(1, v))
}
