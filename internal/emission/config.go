package emission

// FactorSource tags where a scope's emission factors come from.
type FactorSource string

// Known factor sources. Matching is case-insensitive.
const (
	SourceDEFRA   FactorSource = "DEFRA"
	SourceEPA     FactorSource = "EPA"
	SourceIPCC    FactorSource = "IPCC"
	SourceCountry FactorSource = "Country"
	SourceCustom  FactorSource = "Custom"
	SourceHub     FactorSource = "emissionFactorHub"
)

// ScopeConfig is the per (node, scopeIdentifier) configuration owned by the
// flowchart. It is read-only to the calculators.
type ScopeConfig struct {
	ScopeIdentifier      string         `json:"scopeIdentifier" yaml:"scopeIdentifier" validate:"required"`
	ScopeType            ScopeType      `json:"scopeType" yaml:"scopeType" validate:"required"`
	CategoryName         string         `json:"categoryName" yaml:"categoryName"`
	Activity             string         `json:"activity" yaml:"activity"`
	CalculationModel     string         `json:"calculationModel" yaml:"calculationModel"`
	EmissionFactor       FactorSource   `json:"emissionFactor" yaml:"emissionFactor"`
	EmissionFactorValues FactorValues   `json:"emissionFactorValues" yaml:"emissionFactorValues"`
	UAD                  float64        `json:"UAD" yaml:"UAD" validate:"gte=0"`
	UEF                  float64        `json:"UEF" yaml:"UEF" validate:"gte=0"`
	AdditionalInfo       map[string]any `json:"additionalInfo,omitempty" yaml:"additionalInfo,omitempty"`
	CustomValue          map[string]any `json:"customValue,omitempty" yaml:"customValue,omitempty"`

	// Kind caches the resolved category. Normalize fills it.
	Kind CategoryKind `json:"-" yaml:"-"`
}

// Normalize resolves the category kind once so later dispatch is a table
// lookup rather than repeated string matching.
func (c *ScopeConfig) Normalize() {
	if st, ok := ParseScopeType(string(c.ScopeType)); ok {
		c.ScopeType = st
	}
	c.Kind = ResolveCategoryKind(c.ScopeType, c.CategoryName, c.Activity)
}

// CategoryKind returns the cached kind or resolves it.
func (c ScopeConfig) CategoryKind() CategoryKind {
	if c.Kind != KindUnknown {
		return c.Kind
	}
	st, _ := ParseScopeType(string(c.ScopeType))
	return ResolveCategoryKind(st, c.CategoryName, c.Activity)
}

// Tier parses CalculationModel.
func (c ScopeConfig) Tier() Tier {
	return ParseTier(c.CalculationModel)
}

// params returns the configuration bags in lookup priority order.
func (c ScopeConfig) params() []Lookup {
	lookups := []Lookup{FromBag(c.CustomValue), FromBag(c.AdditionalInfo)}
	if cf := c.EmissionFactorValues.CustomEmissionFactor; cf != nil {
		lookups = append(lookups, FromFloats(cf.Parameters))
	}
	return lookups
}

// FactorValues is the discriminated union of factor tables. Only the member
// matching ScopeConfig.EmissionFactor is consulted, except CountryData which
// Scope 3 T&D losses always read.
type FactorValues struct {
	DefraData             []GasFactorEntry `json:"defraData,omitempty" yaml:"defraData,omitempty"`
	EPAData               []GasFactorEntry `json:"epaData,omitempty" yaml:"epaData,omitempty"`
	IPCCData              *IPCCFactor      `json:"ipccData,omitempty" yaml:"ipccData,omitempty"`
	CountryData           *CountryFactor   `json:"countryData,omitempty" yaml:"countryData,omitempty"`
	CustomEmissionFactor  *CustomFactor    `json:"customEmissionFactor,omitempty" yaml:"customEmissionFactor,omitempty"`
	EmissionFactorHubData *HubFactor       `json:"emissionFactorHubData,omitempty" yaml:"emissionFactorHubData,omitempty"`
}

// GasFactorEntry is one row of a DEFRA or EPA factor table. The gas it
// applies to is encoded as a suffix of Unit, for example "kg CO2" or
// "KGCH4".
type GasFactorEntry struct {
	Unit                string  `json:"unit" yaml:"unit"`
	GHGConversionFactor float64 `json:"ghgConversionFactor" yaml:"ghgConversionFactor"`
	GWPValue            float64 `json:"gwpValue" yaml:"gwpValue"`
}

// IPCCFactor is a single CO2 factor from the IPCC database.
type IPCCFactor struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// CountryFactor is a grid factor published per year.
type CountryFactor struct {
	Country      string        `json:"country,omitempty" yaml:"country,omitempty"`
	RegionGrid   string        `json:"regionGrid,omitempty" yaml:"regionGrid,omitempty"`
	YearlyValues []YearlyValue `json:"yearlyValues" yaml:"yearlyValues"`
}

// YearlyValue is the factor in force from From until To.
type YearlyValue struct {
	From  string  `json:"from" yaml:"from"`
	To    string  `json:"to,omitempty" yaml:"to,omitempty"`
	Value float64 `json:"value" yaml:"value"`
}

// CustomFactor carries client-supplied factors. Zero GWP fields mean "not
// overridden". Parameters holds extra formula inputs such as leak rates.
type CustomFactor struct {
	CO2            float64            `json:"CO2" yaml:"CO2"`
	CH4            float64            `json:"CH4" yaml:"CH4"`
	N2O            float64            `json:"N2O" yaml:"N2O"`
	CO2e           float64            `json:"CO2e,omitempty" yaml:"CO2e,omitempty"`
	CO2GWP         float64            `json:"CO2_gwp,omitempty" yaml:"CO2_gwp,omitempty"`
	CH4GWP         float64            `json:"CH4_gwp,omitempty" yaml:"CH4_gwp,omitempty"`
	N2OGWP         float64            `json:"N2O_gwp,omitempty" yaml:"N2O_gwp,omitempty"`
	RefrigerantGWP float64            `json:"refrigerantGWP,omitempty" yaml:"refrigerantGWP,omitempty"`
	Parameters     map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// HubFactor is a blended CO2e factor from the emission factor hub. Factors
// carries per-slot values for categories that need more than one factor
// (End-of-Life treatment uses disposal, landfill, incineration in order).
type HubFactor struct {
	Value   float64         `json:"value" yaml:"value"`
	Unit    string          `json:"unit,omitempty" yaml:"unit,omitempty"`
	Factors []HubFactorSlot `json:"factors,omitempty" yaml:"factors,omitempty"`
}

// HubFactorSlot is one labelled blended factor.
type HubFactorSlot struct {
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`
	Value float64 `json:"value" yaml:"value"`
}
