package greenops

// EPA Formula Constants (2024 Edition)
// Source: https://www.epa.gov/energy/greenhouse-gas-equivalencies-calculator
//
// Each constant is the kg CO2e attributed to one unit of the activity, so
//
//	equivalency = kg_CO2e / factor
const (
	// EPAMilesDrivenFactor is kg CO2e per mile for an average passenger vehicle.
	EPAMilesDrivenFactor = 0.192

	// EPASmartphoneChargeFactor is kg CO2e per smartphone charge.
	EPASmartphoneChargeFactor = 0.00822

	// EPATreeSeedlingFactor is kg CO2e absorbed per tree seedling over 10 years.
	EPATreeSeedlingFactor = 60.0

	// EPAHomeDayFactor is kg CO2e per day of average US home electricity.
	EPAHomeDayFactor = 18.3
)

// Global warming potentials (IPCC AR5, 100-year horizon). Used when a
// factor source does not publish its own GWP.
const (
	GWPCarbonDioxide      = 1.0
	GWPMethane            = 28.0
	GWPNitrousOxide       = 265.0
	GWPSulfurHexafluoride = 23500.0
)

// Unit conversion constants for normalizing masses to kilograms.
const (
	GramsToKg  = 0.001
	KgToKg     = 1.0
	TonsToKg   = 1000.0
	PoundsToKg = 0.453592

	// KgPerTonne divides a kilogram figure into tonnes. Summaries are
	// stored in tonnes.
	KgPerTonne = 1000.0
)

// Display thresholds.
const (
	// MinEquivalencyThresholdKg is the smallest kg CO2e for which
	// equivalencies are shown; below it they become meaninglessly small.
	MinEquivalencyThresholdKg = 1.0

	// LargeNumberThreshold switches display to "~X.X million".
	LargeNumberThreshold = 1_000_000

	// BillionThreshold switches display to "~X.X billion".
	BillionThreshold = 1_000_000_000
)
