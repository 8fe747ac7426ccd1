package greenops

import (
	"fmt"
	"math"
)

// Calculate converts input to kilograms and expresses it as miles driven,
// smartphones charged, tree seedlings and home-days of electricity.
//
// Inputs below MinEquivalencyThresholdKg produce an empty output with no
// error. Unit and sign problems are returned from NormalizeToKg.
func Calculate(input CarbonInput) (EquivalencyOutput, error) {
	kg, err := NormalizeToKg(input.Value, input.Unit)
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}
	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	specs := []struct {
		kind   EquivalencyType
		factor float64
		label  string
	}{
		{EquivalencyMilesDriven, EPAMilesDrivenFactor, "miles driven"},
		{EquivalencySmartphonesCharged, EPASmartphoneChargeFactor, "smartphones charged"},
		{EquivalencyTreeSeedlings, EPATreeSeedlingFactor, "tree seedlings grown for 10 years"},
		{EquivalencyHomeDays, EPAHomeDayFactor, "days of home electricity"},
	}

	results := make([]EquivalencyResult, 0, len(specs))
	for _, s := range specs {
		v := kg / s.factor
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
		}
		results = append(results, EquivalencyResult{
			Type:           s.kind,
			Value:          v,
			FormattedValue: formatEquivalencyValue(v),
			Label:          s.label,
		})
	}

	miles, phones := results[0].FormattedValue, results[1].FormattedValue
	return EquivalencyOutput{
		InputKg:     kg,
		Results:     results,
		DisplayText: fmt.Sprintf("Equivalent to driving ~%s miles or charging ~%s smartphones", miles, phones),
		CompactText: fmt.Sprintf("(≈ %s mi, %s phones)", miles, phones),
	}, nil
}

// CalculateFromTonnes is Calculate for a summary figure already in tonnes.
func CalculateFromTonnes(tonnes float64) EquivalencyOutput {
	out, err := Calculate(CarbonInput{Value: tonnes, Unit: "t"})
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}
	}
	return out
}

// formatEquivalencyValue scales large values and rounds the rest to a
// comma-separated integer.
func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
