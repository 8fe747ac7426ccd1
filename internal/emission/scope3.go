package emission

// Scope 3 bucket keys.
const (
	KeyPurchasedGoods      = "purchased_goods_services"
	KeyCapitalGoods        = "capital_goods"
	KeyUpstreamFuel        = "upstream_fuel"
	KeyWTT                 = "wtt"
	KeyTDLosses            = "t_and_d_losses"
	KeyUpstreamTransport   = "upstream_transport"
	KeyWasteGenerated      = "waste_generated"
	KeyBusinessTravel      = "business_travel"
	KeyHotelStay           = "hotel_stay"
	KeyEmployeeCommuting   = "employee_commuting"
	KeyUpstreamLeased      = "upstream_leased_assets"
	KeyDownstreamTransport = "downstream_transport"
	KeyProcessingSold      = "processing_sold_products"
	KeyUseOfSold           = "use_of_sold_products"
	KeyEOLDisposal         = "eol_disposal"
	KeyEOLLandfill         = "eol_landfill"
	KeyEOLIncineration     = "eol_incineration"
	KeyDownstreamLeased    = "downstream_leased_assets"
	KeyFranchises          = "franchises"
	KeyInvestments         = "investments"
)

// scope3Calc fills the builder for one category.
type scope3Calc func(in Input, r Resolved, b *builder, tier Tier)

//nolint:gochecknoglobals // Dispatch table keyed by resolved category.
var scope3Calcs = map[CategoryKind]scope3Calc{
	KindPurchasedGoods:         scope3PurchasedGoods,
	KindCapitalGoods:           scope3CapitalGoods,
	KindFuelEnergy:             scope3FuelEnergy,
	KindUpstreamTransport:      transportCalc(KeyUpstreamTransport),
	KindWasteGenerated:         scope3Waste,
	KindBusinessTravel:         scope3BusinessTravel,
	KindEmployeeCommuting:      scope3Commuting,
	KindUpstreamLeasedAssets:   leasedAssetsCalc(KeyUpstreamLeased),
	KindDownstreamTransport:    transportCalc(KeyDownstreamTransport),
	KindProcessingSoldProducts: scope3ProcessingSold,
	KindUseOfSoldProducts:      scope3UseOfSold,
	KindEndOfLife:              scope3EndOfLife,
	KindDownstreamLeasedAssets: leasedAssetsCalc(KeyDownstreamLeased),
	KindFranchises:             scope3Franchises,
	KindInvestments:            scope3Investments,
}

// CalculateScope3 computes value-chain emissions for the fifteen GHG
// Protocol categories. The result is always successful; a category or tier
// with no formula yields empty buckets.
func CalculateScope3(in Input) Result {
	cfg := in.Config
	tier := cfg.Tier()
	b := newBuilder(cfg)
	if tier == Tier3 {
		res := b.result(Scope3, cfg, tier)
		res.Message = MessageTier3
		return res
	}
	if calc, ok := scope3Calcs[cfg.CategoryKind()]; ok {
		calc(in, ResolveFactors(cfg), b, tier)
	}
	return b.result(Scope3, cfg, tier)
}

// single is the common driver x EF case.
func single(in Input, r Resolved, b *builder, key string, driver ...string) {
	b.put(key, func(s side) GasValues {
		return gasesFor(in.quantity(s, driver...), r)
	})
}

func scope3PurchasedGoods(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyPurchasedGoods, "procurementSpend")
		return
	}
	single(in, r, b, KeyPurchasedGoods, "physicalQuantity")
}

// scope3CapitalGoods spreads a durable good's footprint over its lifetime
// in tier 2. A missing or non-positive lifetime counts as 1 year.
func scope3CapitalGoods(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		single(in, r, b, KeyCapitalGoods, "procurementSpend")
		return
	}
	lifetime := in.configFirstParam(1, "assetLifetime", "asset_lifetime", "lifetime", "usefulLife")
	if lifetime <= 0 {
		lifetime = 1
	}
	b.put(KeyCapitalGoods, func(s side) GasValues {
		return gasesFor(in.quantity(s, "assetQuantity"), r).Scale(1 / lifetime)
	})
}

// scope3FuelEnergy always produces three entries: upstream fuel, well to
// tank and transmission and distribution losses. The grid factor for the
// losses comes from the Country table whatever the primary source is.
func scope3FuelEnergy(in Input, r Resolved, b *builder, _ Tier) {
	single(in, r, b, KeyUpstreamFuel, "fuelConsumed")

	wtt := in.param(0, "wttEF", "wttEmissionFactor", "wtt_ef")
	b.put(KeyWTT, func(s side) GasValues {
		return co2eOnly(in.quantity(s, "fuelConsumed") * wtt)
	})

	loss := Fraction(in.param(0, "tdLossFactor", "td_loss_factor", "transmissionLossFactor"))
	grid := ResolveCountryGridFactor(in.Config)
	b.put(KeyTDLosses, func(s side) GasValues {
		v := in.quantity(s, "electricityConsumed") * loss * grid
		return GasValues{CO2: v, CO2e: v}
	})
}

// transportCalc serves upstream and downstream transportation. Distance is
// an intensity and is not accumulated.
func transportCalc(key string) scope3Calc {
	return func(in Input, r Resolved, b *builder, tier Tier) {
		if tier == Tier1 {
			single(in, r, b, key, "transportationSpend")
			return
		}
		distance := in.quantity(incomingSide, "distance")
		b.put(key, func(s side) GasValues {
			return gasesFor(in.quantity(s, "mass")*distance, r)
		})
	}
}

// recyclingRate prefers the configured rate over the payload.
func recyclingRate(in Input) float64 {
	return Fraction(in.configFirstParam(0, "recyclingRate", "recycling_rate"))
}

func scope3Waste(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier1 {
		keep := 1 - recyclingRate(in)
		b.put(KeyWasteGenerated, func(s side) GasValues {
			return gasesFor(in.quantity(s, "wasteMass"), r).Scale(keep)
		})
		return
	}
	key := KeyWasteGenerated
	keep := 1.0
	if method := in.configString("treatmentMethod", "treatment_method"); method != "" {
		key = "waste_" + slug(method)
	} else {
		keep = 1 - recyclingRate(in)
	}
	b.put(key, func(s side) GasValues {
		return gasesFor(in.quantity(s, "wasteMass"), r).Scale(keep)
	})
}

func scope3BusinessTravel(in Input, r Resolved, b *builder, tier Tier) {
	if ParseActivityVariant(in.Config.Activity) == VariantHotelBased {
		single(in, r, b, KeyHotelStay, "hotelNights")
		return
	}
	if tier == Tier1 {
		single(in, r, b, KeyBusinessTravel, "travelSpend")
		return
	}
	distance := in.quantity(incomingSide, "distanceTravelled")
	b.put(KeyBusinessTravel, func(s side) GasValues {
		return gasesFor(in.quantity(s, "numberOfPassengers")*distance, r)
	})
}

func scope3Commuting(in Input, r Resolved, b *builder, tier Tier) {
	if tier == Tier2 {
		single(in, r, b, KeyEmployeeCommuting, "totalCommuteDistance")
		return
	}
	distance := in.param(0, "averageCommuteDistance")
	days := in.param(0, "workingDays")
	b.put(KeyEmployeeCommuting, func(s side) GasValues {
		return gasesFor(in.quantity(s, "employeeCount")*distance*days, r)
	})
}

// leasedAssetsCalc serves upstream and downstream leased assets.
//
// The area-based tier 2 case allocates the building's Scope 1+2 total by
// leasedArea / (totalArea x occupancyFactor). A zero denominator gives 0.
func leasedAssetsCalc(key string) scope3Calc {
	return func(in Input, r Resolved, b *builder, tier Tier) {
		if tier == Tier1 {
			single(in, r, b, key, "leasedArea")
			return
		}
		variant := ParseActivityVariant(in.Config.Activity)
		if variant == VariantUnset {
			variant = VariantAreaBased
			if in.quantity(incomingSide, "energyConsumption") != 0 {
				variant = VariantEnergyBased
			}
		}
		if variant == VariantEnergyBased {
			single(in, r, b, key, "energyConsumption")
			return
		}
		occupancy := in.configFirstParam(1, "occupancyFactor", "occupancy_factor", "occupancy")
		if occupancy <= 0 {
			occupancy = 1
		}
		var ratio float64
		if denom := in.quantity(incomingSide, "totalArea") * Fraction(occupancy); denom != 0 {
			ratio = in.quantity(incomingSide, "leasedArea") / denom
		}
		b.put(key, func(s side) GasValues {
			return co2eOnly(ratio * in.quantity(s, "BuildingTotalS1_S2", "buildingTotalS1S2"))
		})
	}
}
