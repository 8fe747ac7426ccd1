package ingest

import (
	"strings"
	"unicode"

	"github.com/rshade/carbonledger/internal/emission"
)

// canonicalFields lists the driver and parameter names each category reads.
//
//nolint:gochecknoglobals // Static field table.
var canonicalFields = map[emission.CategoryKind][]string{
	emission.KindCombustion:            {"fuelConsumed"},
	emission.KindFugitiveRefrigeration: {"numberOfUnits", "leakageRate", "installedCapacity", "endYearCapacity", "purchases", "disposals"},
	emission.KindFugitiveGeneric:       {"numberOfUnits", "leakageRate", "installedCapacity", "endYearCapacity", "purchases", "disposals"},
	emission.KindFugitiveSF6: {
		"nameplateCapacity", "sf6LeakageRate", "decreaseInventory", "acquisitions", "disbursements", "netCapacityIncrease",
	},
	emission.KindFugitiveCH4Leaks:     {"activityData", "ch4LeakEF", "ch4LeakGWP", "numberOfComponents", "componentEF", "componentGWP"},
	emission.KindProcessEmission:      {"productionOutput", "industryAverageEF", "rawMaterialInput", "stoichiometricFactor", "conversionEfficiency"},
	emission.KindPurchasedElectricity: {"consumed_electricity"},
	emission.KindPurchasedSteam:       {"consumed_steam"},
	emission.KindPurchasedHeating:     {"consumed_heating"},
	emission.KindPurchasedCooling:     {"consumed_cooling"},
	emission.KindPurchasedGoods:       {"procurementSpend", "physicalQuantity"},
	emission.KindCapitalGoods:         {"procurementSpend", "assetQuantity", "assetLifetime"},
	emission.KindFuelEnergy:           {"fuelConsumed", "electricityConsumed", "wttEF", "tdLossFactor"},
	emission.KindUpstreamTransport:    {"transportationSpend", "mass", "distance"},
	emission.KindDownstreamTransport:  {"transportationSpend", "mass", "distance"},
	emission.KindWasteGenerated:       {"wasteMass", "recyclingRate"},
	emission.KindBusinessTravel:       {"travelSpend", "numberOfPassengers", "distanceTravelled", "hotelNights"},
	emission.KindEmployeeCommuting:    {"employeeCount", "averageCommuteDistance", "workingDays", "totalCommuteDistance"},
	emission.KindUpstreamLeasedAssets: {
		"leasedArea", "totalArea", "occupancyFactor", "energyConsumption", "BuildingTotalS1_S2",
	},
	emission.KindDownstreamLeasedAssets: {
		"leasedArea", "totalArea", "occupancyFactor", "energyConsumption", "BuildingTotalS1_S2",
	},
	emission.KindProcessingSoldProducts: {"productQuantity", "processingEnergy"},
	emission.KindUseOfSoldProducts:      {"unitsSold", "energyPerUse", "usesPerYear", "productLifetime"},
	emission.KindEndOfLife: {
		"totalMass", "disposalFraction", "landfillFraction", "incinerationFraction",
		"massDisposed", "massLandfilled", "massIncinerated",
	},
	emission.KindFranchises:  {"franchiseCount", "franchiseTotalS1", "franchiseTotalS2", "energyConsumption"},
	emission.KindInvestments: {"investmentAmount", "investeeScope1", "investeeScope2", "equityShare", "energyConsumption"},
}

// synonyms maps squashed alternative names onto canonical fields. They
// apply only when the canonical field belongs to the category.
//
//nolint:gochecknoglobals // Static alias table.
var synonyms = map[string]string{
	"fuel":                   "fuelConsumed",
	"fuelconsumption":        "fuelConsumed",
	"fuelused":               "fuelConsumed",
	"units":                  "numberOfUnits",
	"unitcount":              "numberOfUnits",
	"leakrate":               "leakageRate",
	"sf6leakrate":            "sf6LeakageRate",
	"leakagerate":            "leakageRate",
	"components":             "numberOfComponents",
	"electricity":            "consumed_electricity",
	"electricitykwh":         "consumed_electricity",
	"electricityconsumption": "consumed_electricity",
	"kwh":                    "consumed_electricity",
	"steam":                  "consumed_steam",
	"heating":                "consumed_heating",
	"heat":                   "consumed_heating",
	"cooling":                "consumed_cooling",
	"spend":                  "procurementSpend",
	"quantity":               "physicalQuantity",
	"weight":                 "mass",
	"tonnage":                "mass",
	"km":                     "distance",
	"waste":                  "wasteMass",
	"recycledpercentage":     "recyclingRate",
	"passengers":             "numberOfPassengers",
	"nights":                 "hotelNights",
	"employees":              "employeeCount",
	"commutedistance":        "averageCommuteDistance",
	"area":                   "leasedArea",
	"occupancy":              "occupancyFactor",
	"energy":                 "energyConsumption",
	"lifetime":               "productLifetime",
	"eolmass":                "totalMass",
	"massEol":                "totalMass",
	"toDisposal":             "disposalFraction",
	"toLandfill":             "landfillFraction",
	"toIncineration":         "incinerationFraction",
	"franchises":             "franchiseCount",
	"equitysharepercentage":  "equityShare",
}

// percentFields hold rates. They are stored as fractions in [0, 1].
//
//nolint:gochecknoglobals // Static field set.
var percentFields = map[string]bool{
	"leakageRate":          true,
	"sf6LeakageRate":       true,
	"conversionEfficiency": true,
	"tdLossFactor":         true,
	"recyclingRate":        true,
	"occupancyFactor":      true,
	"disposalFraction":     true,
	"landfillFraction":     true,
	"incinerationFraction": true,
	"equityShare":          true,
}

// massFields are converted to kilograms when the payload names a unit.
//
//nolint:gochecknoglobals // Static field set.
var massFields = map[string]bool{
	"wasteMass":       true,
	"mass":            true,
	"totalMass":       true,
	"massDisposed":    true,
	"massLandfilled":  true,
	"massIncinerated": true,
}

// squash lowercases s and drops everything but letters and digits, so
// "fuel_consumed", "Fuel Consumed" and "fuelConsumed" compare equal.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// fieldIndex maps squashed names to canonical fields for one category.
type fieldIndex map[string]string

func buildIndex(kind emission.CategoryKind) fieldIndex {
	fields := canonicalFields[kind]
	idx := make(fieldIndex, len(fields)*2)
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		idx[squash(f)] = f
		allowed[f] = true
	}
	for alias, canonical := range synonyms {
		if allowed[canonical] {
			if _, taken := idx[squash(alias)]; !taken {
				idx[squash(alias)] = canonical
			}
		}
	}
	return idx
}

// resolve returns the canonical name for raw, or raw itself when the
// category has no matching field.
func (idx fieldIndex) resolve(raw string) string {
	if c, ok := idx[squash(raw)]; ok {
		return c
	}
	return strings.TrimSpace(raw)
}
