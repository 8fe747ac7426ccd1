package emission

import (
	"strings"
)

// CategoryKind identifies the calculation branch for a scope configuration.
type CategoryKind int

// Category kinds. The zero value means no rule matched.
const (
	KindUnknown CategoryKind = iota

	// Scope 1.
	KindCombustion
	KindFugitiveRefrigeration
	KindFugitiveSF6
	KindFugitiveCH4Leaks
	KindFugitiveGeneric
	KindProcessEmission

	// Scope 2.
	KindPurchasedElectricity
	KindPurchasedSteam
	KindPurchasedHeating
	KindPurchasedCooling

	// Scope 3, in GHG Protocol category order.
	KindPurchasedGoods
	KindCapitalGoods
	KindFuelEnergy
	KindUpstreamTransport
	KindWasteGenerated
	KindBusinessTravel
	KindEmployeeCommuting
	KindUpstreamLeasedAssets
	KindDownstreamTransport
	KindProcessingSoldProducts
	KindUseOfSoldProducts
	KindEndOfLife
	KindDownstreamLeasedAssets
	KindFranchises
	KindInvestments
)

//nolint:gochecknoglobals // Lookup table for String.
var kindNames = map[CategoryKind]string{
	KindUnknown:                "unknown",
	KindCombustion:             "combustion",
	KindFugitiveRefrigeration:  "fugitive_refrigeration",
	KindFugitiveSF6:            "fugitive_sf6",
	KindFugitiveCH4Leaks:       "fugitive_ch4_leaks",
	KindFugitiveGeneric:        "fugitive",
	KindProcessEmission:        "process_emission",
	KindPurchasedElectricity:   "purchased_electricity",
	KindPurchasedSteam:         "purchased_steam",
	KindPurchasedHeating:       "purchased_heating",
	KindPurchasedCooling:       "purchased_cooling",
	KindPurchasedGoods:         "purchased_goods_services",
	KindCapitalGoods:           "capital_goods",
	KindFuelEnergy:             "fuel_energy",
	KindUpstreamTransport:      "upstream_transport",
	KindWasteGenerated:         "waste_generated",
	KindBusinessTravel:         "business_travel",
	KindEmployeeCommuting:      "employee_commuting",
	KindUpstreamLeasedAssets:   "upstream_leased_assets",
	KindDownstreamTransport:    "downstream_transport",
	KindProcessingSoldProducts: "processing_sold_products",
	KindUseOfSoldProducts:      "use_of_sold_products",
	KindEndOfLife:              "end_of_life",
	KindDownstreamLeasedAssets: "downstream_leased_assets",
	KindFranchises:             "franchises",
	KindInvestments:            "investments",
}

func (k CategoryKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// categoryRule matches normalized category and activity text. Rules for a
// scope are evaluated in table order and the first hit wins, so the more
// specific fugitive rules sit above the generic one.
type categoryRule struct {
	kind  CategoryKind
	match func(category, activity string) bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func inCategory(subs ...string) func(string, string) bool {
	return func(category, _ string) bool { return containsAny(category, subs...) }
}

//nolint:gochecknoglobals // Ordered dispatch table, effectively constant.
var categoryRules = map[ScopeType][]categoryRule{
	Scope1: {
		{KindFugitiveSF6, func(c, a string) bool {
			return strings.Contains(c, "fugitive") && (containsAny(c, "sf6") || containsAny(a, "sf6"))
		}},
		{KindFugitiveCH4Leaks, func(c, a string) bool {
			return strings.Contains(c, "fugitive") &&
				(containsAny(c, "ch4 leak", "ch4leak", "methane") || containsAny(a, "ch4 leak", "ch4leak", "methane", "ch4"))
		}},
		{KindFugitiveRefrigeration, func(c, a string) bool {
			return strings.Contains(c, "fugitive") && (containsAny(c, "refrigera") || containsAny(a, "refrigera", "hvac", "chiller"))
		}},
		{KindFugitiveGeneric, inCategory("fugitive")},
		{KindProcessEmission, inCategory("process")},
		{KindCombustion, inCategory("combustion", "stationary", "mobile")},
	},
	Scope2: {
		{KindPurchasedElectricity, inCategory("purchased electricity")},
		{KindPurchasedSteam, inCategory("purchased steam")},
		{KindPurchasedHeating, inCategory("purchased heating")},
		{KindPurchasedCooling, inCategory("purchased cooling")},
	},
	Scope3: {
		{KindPurchasedGoods, inCategory("purchased goods")},
		{KindCapitalGoods, inCategory("capital goods")},
		{KindFuelEnergy, inCategory("fuel and energy", "fuel & energy", "fuel-and-energy")},
		{KindUpstreamTransport, inCategory("upstream transport")},
		{KindWasteGenerated, inCategory("waste generated")},
		{KindBusinessTravel, inCategory("business travel")},
		{KindEmployeeCommuting, inCategory("employee commuting")},
		{KindUpstreamLeasedAssets, inCategory("upstream leased")},
		{KindDownstreamTransport, inCategory("downstream transport")},
		{KindProcessingSoldProducts, inCategory("processing of sold")},
		{KindUseOfSoldProducts, inCategory("use of sold")},
		{KindEndOfLife, inCategory("end-of-life", "end of life")},
		{KindDownstreamLeasedAssets, inCategory("downstream leased")},
		{KindFranchises, inCategory("franchise")},
		{KindInvestments, inCategory("investment")},
	},
}

// normalizeLabel lowercases and collapses separators so "Business_Travel"
// and "business  travel" compare equal.
func normalizeLabel(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "\t", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ResolveCategoryKind maps a scope type and free-text labels to a kind.
func ResolveCategoryKind(scope ScopeType, category, activity string) CategoryKind {
	c := normalizeLabel(category)
	a := normalizeLabel(activity)
	for _, rule := range categoryRules[scope] {
		if rule.match(c, a) {
			return rule.kind
		}
	}
	return KindUnknown
}

// ActivityVariant is the normalized sub-variant of a Scope 3 category.
type ActivityVariant int

// Activity variants. VariantUnset drives the legacy driver heuristics.
const (
	VariantUnset ActivityVariant = iota
	VariantTravelBased
	VariantHotelBased
	VariantEnergyBased
	VariantAreaBased
	VariantEmissionBased
	VariantOther
)

// ParseActivityVariant reads the activity label of a scope configuration.
func ParseActivityVariant(activity string) ActivityVariant {
	a := normalizeLabel(strings.ReplaceAll(activity, "-", " "))
	switch {
	case a == "":
		return VariantUnset
	case strings.Contains(a, "hotel"):
		return VariantHotelBased
	case strings.Contains(a, "travel"):
		return VariantTravelBased
	case strings.Contains(a, "energy"):
		return VariantEnergyBased
	case strings.Contains(a, "area"):
		return VariantAreaBased
	case strings.Contains(a, "emission"):
		return VariantEmissionBased
	default:
		return VariantOther
	}
}
