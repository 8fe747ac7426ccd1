// Package emission turns activity data plus emission-factor configuration
// into gas-level greenhouse-gas results for GHG Protocol Scopes 1, 2 and 3.
//
// Everything in this package is pure: no I/O, no logging, no clocks. Callers
// hand in a ScopeConfig and the incoming and running-cumulative field values
// for a record and receive a Result with two buckets of GasValues.
package emission

import (
	"math"
	"strings"
)

// ScopeType is the GHG Protocol scope of an activity stream.
type ScopeType string

// Recognized scope types.
const (
	Scope1 ScopeType = "Scope 1"
	Scope2 ScopeType = "Scope 2"
	Scope3 ScopeType = "Scope 3"
)

// ParseScopeType accepts "Scope 1", "scope1", "SCOPE_1" and "1" style spellings.
// The second return value is false for anything else.
func ParseScopeType(s string) (ScopeType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	norm = strings.TrimPrefix(norm, "scope")
	switch norm {
	case "1":
		return Scope1, true
	case "2":
		return Scope2, true
	case "3":
		return Scope3, true
	default:
		return ScopeType(s), false
	}
}

// Tier is the calculation granularity requested by the scope configuration.
type Tier int

// Calculation tiers. Tier 3 is accepted but not implemented.
const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// String renders the tier the way configurations spell it.
func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier 1"
	case Tier2:
		return "tier 2"
	case Tier3:
		return "tier 3"
	default:
		return "tier ?"
	}
}

// ParseTier reads a calculationModel such as "tier 2", "Tier2" or "2".
// Empty or unrecognized models are treated as tier 1.
func ParseTier(model string) Tier {
	norm := strings.ToLower(strings.TrimSpace(model))
	norm = strings.TrimPrefix(norm, "tier")
	norm = strings.TrimSpace(strings.Trim(norm, " _-"))
	switch norm {
	case "2":
		return Tier2
	case "3":
		return Tier3
	default:
		return Tier1
	}
}

// GasValues is one gas-level result. CO2e is always in the unit implied by
// the emission factor (kilograms for every shipped source).
type GasValues struct {
	CO2                 float64 `json:"CO2" yaml:"CO2"`
	CH4                 float64 `json:"CH4" yaml:"CH4"`
	N2O                 float64 `json:"N2O" yaml:"N2O"`
	CO2e                float64 `json:"CO2e" yaml:"CO2e"`
	CombinedUncertainty float64 `json:"combinedUncertainty" yaml:"combinedUncertainty"`
	CO2eWithUncertainty float64 `json:"CO2eWithUncertainty" yaml:"CO2eWithUncertainty"`
}

// Add returns the element-wise sum of g and o.
func (g GasValues) Add(o GasValues) GasValues {
	return GasValues{
		CO2:                 g.CO2 + o.CO2,
		CH4:                 g.CH4 + o.CH4,
		N2O:                 g.N2O + o.N2O,
		CO2e:                g.CO2e + o.CO2e,
		CombinedUncertainty: g.CombinedUncertainty + o.CombinedUncertainty,
		CO2eWithUncertainty: g.CO2eWithUncertainty + o.CO2eWithUncertainty,
	}
}

// Scale multiplies every component by f.
func (g GasValues) Scale(f float64) GasValues {
	return GasValues{
		CO2:                 g.CO2 * f,
		CH4:                 g.CH4 * f,
		N2O:                 g.N2O * f,
		CO2e:                g.CO2e * f,
		CombinedUncertainty: g.CombinedUncertainty * f,
		CO2eWithUncertainty: g.CO2eWithUncertainty * f,
	}
}

// Bucket maps an activity-specific key (for example "upstream_fuel") to its
// gas values.
type Bucket map[string]GasValues

// Total sums every entry of the bucket.
func (b Bucket) Total() GasValues {
	var total GasValues
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// Emissions holds the period contribution and the running total side by side.
type Emissions struct {
	Incoming   Bucket `json:"incoming" yaml:"incoming"`
	Cumulative Bucket `json:"cumulative" yaml:"cumulative"`
}

// NewEmissions returns Emissions with both buckets allocated.
func NewEmissions() Emissions {
	return Emissions{Incoming: Bucket{}, Cumulative: Bucket{}}
}

// IsEmpty reports whether neither bucket has any entry.
func (e Emissions) IsEmpty() bool {
	return len(e.Incoming) == 0 && len(e.Cumulative) == 0
}

// Result is what every scope calculator returns. Unsupported combinations
// are reported with Success=false or with an explanatory Message and empty
// buckets, never as a Go error.
type Result struct {
	Success   bool      `json:"success"`
	ScopeType ScopeType `json:"scopeType"`
	Category  string    `json:"category"`
	Tier      Tier      `json:"tier"`
	Emissions Emissions `json:"emissions"`
	Message   string    `json:"message,omitempty"`
}

// Input is a single record's data as seen by a calculator.
//
// Incoming holds this record's field values. Cumulative holds the running
// per-field totals up to and including this record; when a field is missing
// from Cumulative the incoming value is used.
type Input struct {
	Config     ScopeConfig
	Incoming   map[string]float64
	Cumulative map[string]float64
}

// side selects which value map a quantity driver is read from.
type side int

const (
	incomingSide side = iota
	cumulativeSide
)

// quantity reads the first present driver field for the given side.
func (in Input) quantity(s side, keys ...string) float64 {
	if s == cumulativeSide {
		for _, k := range keys {
			if v, ok := in.Cumulative[k]; ok {
				return v
			}
		}
	}
	for _, k := range keys {
		if v, ok := in.Incoming[k]; ok {
			return v
		}
	}
	return 0
}

// hasQuantity reports whether any of keys is present in the incoming row.
func (in Input) hasQuantity(keys ...string) bool {
	for _, k := range keys {
		if _, ok := in.Incoming[k]; ok {
			return true
		}
	}
	return false
}

// CombinedUncertainty returns base * sqrt(uad^2 + uef^2) / 100.
func CombinedUncertainty(base, uad, uef float64) float64 {
	return base * math.Sqrt(uad*uad+uef*uef) / 100
}

// withUncertainty attaches the propagated uncertainty to g.
func withUncertainty(g GasValues, uad, uef float64) GasValues {
	g.CombinedUncertainty = CombinedUncertainty(g.CO2e, uad, uef)
	g.CO2eWithUncertainty = g.CO2e + g.CombinedUncertainty
	return g
}
