package emission

import (
	"sort"
	"strings"
	"time"

	"github.com/rshade/carbonledger/internal/greenops"
)

// FactorSet is the canonical per-unit factor for each gas. Blended is set
// when only a CO2e factor is known and gas decomposition must be skipped.
type FactorSet struct {
	CO2     float64 `json:"CO2"`
	CH4     float64 `json:"CH4"`
	N2O     float64 `json:"N2O"`
	CO2e    float64 `json:"CO2e"`
	Blended bool    `json:"blended"`
}

// GWPSet holds global warming potentials for each gas plus the refrigerant
// configured on the scope.
type GWPSet struct {
	CO2         float64 `json:"CO2"`
	CH4         float64 `json:"CH4"`
	N2O         float64 `json:"N2O"`
	Refrigerant float64 `json:"refrigerant"`
}

// Resolved bundles the outcome of ResolveFactors.
type Resolved struct {
	Factors FactorSet
	GWP     GWPSet
}

// Primary is the single factor used by formulas that take one EF: the
// blended CO2e value when present, otherwise the CO2 factor.
func (r Resolved) Primary() float64 {
	if r.Factors.Blended {
		return r.Factors.CO2e
	}
	return r.Factors.CO2
}

// HasFactor reports whether any factor is non-zero.
func (r Resolved) HasFactor() bool {
	f := r.Factors
	return f.CO2 != 0 || f.CH4 != 0 || f.N2O != 0 || f.CO2e != 0
}

// ResolveFactors extracts the canonical factor and GWP sets from cfg.
// Unknown sources and missing tables yield zero factors; it never fails.
func ResolveFactors(cfg ScopeConfig) Resolved {
	res := Resolved{GWP: GWPSet{CO2: 1}}
	values := cfg.EmissionFactorValues

	switch normalizeSource(cfg.EmissionFactor) {
	case SourceDEFRA:
		applyGasTable(&res, values.DefraData)
	case SourceEPA:
		applyGasTable(&res, values.EPAData)
	case SourceIPCC:
		if values.IPCCData != nil {
			res.Factors.CO2 = values.IPCCData.Value
		}
	case SourceCountry:
		res.Factors.CO2 = latestCountryValue(values.CountryData)
	case SourceCustom:
		applyCustom(&res, values.CustomEmissionFactor)
	case SourceHub:
		if values.EmissionFactorHubData != nil {
			res.Factors.CO2e = values.EmissionFactorHubData.Value
			res.Factors.Blended = true
		}
	}
	return res
}

// ResolveCountryGridFactor returns the latest Country grid factor of cfg
// regardless of its primary source, or 0.
func ResolveCountryGridFactor(cfg ScopeConfig) float64 {
	return latestCountryValue(cfg.EmissionFactorValues.CountryData)
}

func normalizeSource(src FactorSource) FactorSource {
	s := strings.ToLower(strings.TrimSpace(string(src)))
	switch s {
	case "defra":
		return SourceDEFRA
	case "epa":
		return SourceEPA
	case "ipcc":
		return SourceIPCC
	case "country":
		return SourceCountry
	case "custom":
		return SourceCustom
	case "emissionfactorhub", "emission factor hub", "hub":
		return SourceHub
	default:
		return src
	}
}

// applyGasTable assigns each entry to the gas named by its unit suffix. A
// later entry for the same gas overwrites an earlier one. Entries naming no
// gas but carrying a GWP are taken as the refrigerant GWP.
func applyGasTable(res *Resolved, entries []GasFactorEntry) {
	for _, e := range entries {
		unit := strings.ToUpper(strings.TrimSpace(e.Unit))
		switch {
		case strings.HasSuffix(unit, "CO2"):
			res.Factors.CO2 = e.GHGConversionFactor
			if e.GWPValue != 0 {
				res.GWP.CO2 = e.GWPValue
			}
		case strings.HasSuffix(unit, "CH4"):
			res.Factors.CH4 = e.GHGConversionFactor
			res.GWP.CH4 = e.GWPValue
		case strings.HasSuffix(unit, "N2O"):
			res.Factors.N2O = e.GHGConversionFactor
			res.GWP.N2O = e.GWPValue
		case strings.HasSuffix(unit, "CO2E"):
			res.Factors.CO2e = e.GHGConversionFactor
		default:
			if e.GWPValue != 0 {
				res.GWP.Refrigerant = e.GWPValue
			}
		}
	}
	if res.Factors.CO2e != 0 && res.Factors.CO2 == 0 && res.Factors.CH4 == 0 && res.Factors.N2O == 0 {
		res.Factors.Blended = true
	}
}

func applyCustom(res *Resolved, cf *CustomFactor) {
	if cf == nil {
		return
	}
	res.Factors.CO2 = cf.CO2
	res.Factors.CH4 = cf.CH4
	res.Factors.N2O = cf.N2O
	res.GWP.CH4 = greenops.GWPMethane
	res.GWP.N2O = greenops.GWPNitrousOxide
	if cf.CO2GWP != 0 {
		res.GWP.CO2 = cf.CO2GWP
	}
	if cf.CH4GWP != 0 {
		res.GWP.CH4 = cf.CH4GWP
	}
	if cf.N2OGWP != 0 {
		res.GWP.N2O = cf.N2OGWP
	}
	res.GWP.Refrigerant = cf.RefrigerantGWP
	if cf.CO2e != 0 && cf.CO2 == 0 && cf.CH4 == 0 && cf.N2O == 0 {
		res.Factors.CO2e = cf.CO2e
		res.Factors.Blended = true
	}
}

// latestCountryValue returns the value whose From date is the latest.
// Unparseable dates sort before every parseable one; ties keep list order.
func latestCountryValue(cd *CountryFactor) float64 {
	if cd == nil || len(cd.YearlyValues) == 0 {
		return 0
	}
	type dated struct {
		at    time.Time
		value float64
	}
	rows := make([]dated, 0, len(cd.YearlyValues))
	for _, yv := range cd.YearlyValues {
		at, _ := parseFactorDate(yv.From)
		rows = append(rows, dated{at: at, value: yv.Value})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	return rows[len(rows)-1].value
}

//nolint:gochecknoglobals // Accepted date layouts for factor tables.
var factorDateLayouts = []string{"02/01/2006", "2006-01-02", time.RFC3339, "2006"}

func parseFactorDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range factorDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
