package emission

import (
	"fmt"
	"sort"

	"github.com/rshade/carbonledger/internal/greenops"
)

// Scope 1 bucket keys for the non-combustion branches.
const (
	KeyRefrigeration   = "refrigeration"
	KeyFugitive        = "fugitive"
	KeySF6             = "sf6"
	KeyCH4Leaks        = "ch4_leaks"
	KeyProcessEmission = "process_emission"
)

// CalculateScope1 computes direct emissions. Combustion produces one bucket
// entry per data field; the fugitive and process branches produce a single
// entry.
func CalculateScope1(in Input) Result {
	cfg := in.Config
	tier := cfg.Tier()
	if tier == Tier3 {
		return Result{
			Success:   true,
			ScopeType: Scope1,
			Category:  cfg.CategoryName,
			Tier:      tier,
			Emissions: NewEmissions(),
			Message:   MessageTier3,
		}
	}

	r := ResolveFactors(cfg)
	b := newBuilder(cfg)

	switch kind := cfg.CategoryKind(); kind {
	case KindCombustion:
		scope1Combustion(in, r, b)
	case KindFugitiveRefrigeration:
		scope1Refrigeration(in, r, b, tier, KeyRefrigeration)
	case KindFugitiveGeneric:
		scope1Refrigeration(in, r, b, tier, KeyFugitive)
	case KindFugitiveSF6:
		scope1SF6(in, b, tier)
	case KindFugitiveCH4Leaks:
		scope1CH4Leaks(in, r, b, tier)
	case KindProcessEmission:
		scope1Process(in, r, b, tier)
	default:
		res := b.result(Scope1, cfg, tier)
		res.Message = fmt.Sprintf("no Scope 1 calculation for category %q", cfg.CategoryName)
		return res
	}
	return b.result(Scope1, cfg, tier)
}

// scope1Combustion applies CO2e = v*CO2 + v*CH4*GWP_CH4 + v*N2O*GWP_N2O to
// every field of the row.
func scope1Combustion(in Input, r Resolved, b *builder) {
	fields := make([]string, 0, len(in.Incoming))
	for field := range in.Incoming {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		b.put(field, func(s side) GasValues {
			return gasesFor(in.quantity(s, field), r)
		})
	}
}

func refrigerantGWP(in Input, r Resolved) float64 {
	if r.GWP.Refrigerant != 0 {
		return r.GWP.Refrigerant
	}
	return in.param(0, "refrigerantGWP", "gwpRefrigerant", "GWP_refrigerant", "fugitiveGWP")
}

// scope1Refrigeration: tier 1 is units x leak rate x GWP; tier 2 is the
// stock-change method.
func scope1Refrigeration(in Input, r Resolved, b *builder, tier Tier, key string) {
	gwp := refrigerantGWP(in, r)
	if tier == Tier1 {
		leak := Fraction(in.param(0, "leakageRate", "leakage_rate", "leakRate"))
		b.put(key, func(s side) GasValues {
			return co2eOnly(in.quantity(s, "numberOfUnits", "units") * leak * gwp)
		})
		return
	}
	b.put(key, func(s side) GasValues {
		change := in.quantity(s, "installedCapacity") -
			in.quantity(s, "endYearCapacity") +
			in.quantity(s, "purchases") -
			in.quantity(s, "disposals")
		return co2eOnly(change * gwp)
	})
}

// scope1SF6: tier 1 is nameplate capacity x leak rate x GWP; tier 2 is the
// inventory-change method.
func scope1SF6(in Input, b *builder, tier Tier) {
	gwp := in.param(greenops.GWPSulfurHexafluoride, "sf6GWP", "GWP_SF6", "gwpSF6")
	if tier == Tier1 {
		leak := Fraction(in.param(0, "sf6LeakageRate", "leakageRate", "leakRate"))
		b.put(KeySF6, func(s side) GasValues {
			return co2eOnly(in.quantity(s, "nameplateCapacity") * leak * gwp)
		})
		return
	}
	b.put(KeySF6, func(s side) GasValues {
		change := in.quantity(s, "decreaseInventory") +
			in.quantity(s, "acquisitions") -
			in.quantity(s, "disbursements") -
			in.quantity(s, "netCapacityIncrease")
		return co2eOnly(change * gwp)
	})
}

// scope1CH4Leaks: tier 1 is activity x leak EF x GWP; tier 2 counts
// components.
func scope1CH4Leaks(in Input, r Resolved, b *builder, tier Tier) {
	defaultGWP := r.GWP.CH4
	if defaultGWP == 0 {
		defaultGWP = greenops.GWPMethane
	}
	var driver []string
	var ef, gwp float64
	if tier == Tier1 {
		driver = []string{"activityData"}
		ef = in.param(r.Factors.CH4, "ch4LeakEF", "ch4LeakEmissionFactor", "leakEmissionFactor")
		gwp = in.param(defaultGWP, "ch4LeakGWP", "leakGWP")
	} else {
		driver = []string{"numberOfComponents", "componentCount"}
		ef = in.param(r.Factors.CH4, "componentEF", "componentEmissionFactor")
		gwp = in.param(defaultGWP, "componentGWP")
	}
	b.put(KeyCH4Leaks, func(s side) GasValues {
		ch4 := in.quantity(s, driver...) * ef
		return GasValues{CH4: ch4, CO2e: ch4 * gwp}
	})
}

// scope1Process: tier 1 uses an industry-average factor per unit of output,
// tier 2 derives CO2 from raw material stoichiometry.
func scope1Process(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		ef := in.param(r.Primary(), "industryAverageEF", "industryAverageEmissionFactor")
		b.put(KeyProcessEmission, func(s side) GasValues {
			v := in.quantity(s, "productionOutput") * ef
			return GasValues{CO2: v, CO2e: v}
		})
		return
	}
	stoich := in.param(0, "stoichiometricFactor", "stoichiometric_factor")
	efficiency := Fraction(in.param(1, "conversionEfficiency", "conversion_efficiency"))
	b.put(KeyProcessEmission, func(s side) GasValues {
		v := in.quantity(s, "rawMaterialInput") * stoich * efficiency
		return GasValues{CO2: v, CO2e: v}
	})
}
