package emission

import "strings"

func scope3ProcessingSold(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyProcessingSold, "productQuantity")
		return
	}
	single(in, r, b, KeyProcessingSold, "processingEnergy")
}

// scope3UseOfSold: tier 2 expands each unit sold into its lifetime energy
// use. The per-unit parameters are not accumulated.
func scope3UseOfSold(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyUseOfSold, "unitsSold")
		return
	}
	perUse := in.param(0, "energyPerUse")
	usesPerYear := in.param(0, "usesPerYear")
	lifetime := in.param(0, "productLifetime")
	b.put(KeyUseOfSold, func(s side) GasValues {
		return gasesFor(in.quantity(s, "unitsSold")*perUse*usesPerYear*lifetime, r)
	})
}

// eolSlots returns the disposal, landfill and incineration factors. With
// three hub slots each route gets its own blended factor, otherwise every
// route reuses the resolved factor.
func eolSlots(in Input, r Resolved) [3]func(q float64) GasValues {
	hub := in.Config.EmissionFactorValues.EmissionFactorHubData
	if hub != nil && len(hub.Factors) == 3 {
		var out [3]func(q float64) GasValues
		for i, slot := range hub.Factors {
			v := slot.Value
			out[i] = func(q float64) GasValues { return co2eOnly(q * v) }
		}
		return out
	}
	same := func(q float64) GasValues { return gasesFor(q, r) }
	return [3]func(q float64) GasValues{same, same, same}
}

// scope3EndOfLife splits sold-product mass across treatment routes. Tier 1
// uses fractions of a total mass which need not sum to 1; tier 2 takes the
// route masses directly.
func scope3EndOfLife(in Input, r Resolved, b *builder, tier Tier) {
	slots := eolSlots(in, r)
	keys := [3]string{KeyEOLDisposal, KeyEOLLandfill, KeyEOLIncineration}

	if tier == Tier1 {
		fractions := [3]float64{
			Fraction(in.configFirstParam(0, "disposalFraction", "toDisposal", "disposal_fraction")),
			Fraction(in.configFirstParam(0, "landfillFraction", "toLandfill", "landfill_fraction")),
			Fraction(in.configFirstParam(0, "incinerationFraction", "toIncineration", "incineration_fraction")),
		}
		for i := range keys {
			fn, frac := slots[i], fractions[i]
			b.put(keys[i], func(s side) GasValues {
				return fn(in.quantity(s, "totalMass", "massEol", "mass") * frac)
			})
		}
		return
	}

	drivers := [3]string{"massDisposed", "massLandfilled", "massIncinerated"}
	for i := range keys {
		fn, driver := slots[i], drivers[i]
		b.put(keys[i], func(s side) GasValues {
			return fn(in.quantity(s, driver))
		})
	}
}

// resolveEmissionOrEnergy picks the tier 2 variant for franchises and
// investments. When the activity is unset the emission drivers are checked
// first, then energy.
func resolveEmissionOrEnergy(in Input, emissionDrivers ...string) ActivityVariant {
	variant := ParseActivityVariant(in.Config.Activity)
	if variant == VariantEmissionBased || variant == VariantEnergyBased {
		return variant
	}
	for _, d := range emissionDrivers {
		if in.quantity(incomingSide, d) != 0 {
			return VariantEmissionBased
		}
	}
	if in.quantity(incomingSide, "energyConsumption") != 0 {
		return VariantEnergyBased
	}
	return VariantUnset
}

func scope3Franchises(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyFranchises, "franchiseCount")
		return
	}
	switch resolveEmissionOrEnergy(in, "franchiseTotalS1", "franchiseTotalS2") {
	case VariantEmissionBased:
		b.put(KeyFranchises, func(s side) GasValues {
			return co2eOnly(in.quantity(s, "franchiseTotalS1") + in.quantity(s, "franchiseTotalS2"))
		})
	case VariantEnergyBased:
		single(in, r, b, KeyFranchises, "energyConsumption")
	}
}

// scope3Investments: the emission-based case scales investee Scope 1+2 by
// the equity share, which defaults to 1.
func scope3Investments(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyInvestments, "investmentAmount")
		return
	}
	switch resolveEmissionOrEnergy(in, "investeeScope1", "investeeScope2") {
	case VariantEmissionBased:
		share := Fraction(in.configFirstParam(1, "equityShare", "equity_share", "equitySharePercentage"))
		b.put(KeyInvestments, func(s side) GasValues {
			return co2eOnly((in.quantity(s, "investeeScope1") + in.quantity(s, "investeeScope2")) * share)
		})
	case VariantEnergyBased:
		single(in, r, b, KeyInvestments, "energyConsumption")
	}
}

// slug lowercases s and joins its words with underscores.
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(s))), "_")
}
