package emission

import (
	"fmt"
	"sort"
)

// Canonical Scope 2 field per category.
//
//nolint:gochecknoglobals // Lookup table.
var scope2Fields = map[CategoryKind]string{
	KindPurchasedElectricity: "consumed_electricity",
	KindPurchasedSteam:       "consumed_steam",
	KindPurchasedHeating:     "consumed_heating",
	KindPurchasedCooling:     "consumed_cooling",
}

// CalculateScope2 handles purchased electricity, steam, heating and
// cooling. Scope 2 has no gas split: CO2e = CO2 = quantity x factor.
func CalculateScope2(in Input) Result {
	cfg := in.Config
	field, ok := scope2Fields[cfg.CategoryKind()]
	if !ok {
		return Result{
			Success:   false,
			ScopeType: Scope2,
			Category:  cfg.CategoryName,
			Message:   fmt.Sprintf("unsupported Scope 2 category %q", cfg.CategoryName),
		}
	}

	if _, present := in.Incoming[field]; !present {
		field = firstField(in.Incoming)
	}

	r := ResolveFactors(cfg)
	ef := r.Primary()
	b := newBuilder(cfg)
	if field != "" {
		b.put(field, func(s side) GasValues {
			v := in.quantity(s, field) * ef
			if r.Factors.Blended {
				return co2eOnly(v)
			}
			return GasValues{CO2: v, CO2e: v}
		})
	}
	return b.result(Scope2, cfg, cfg.Tier())
}

// firstField returns the first key in sorted order, or "" for an empty row.
func firstField(row map[string]float64) string {
	if len(row) == 0 {
		return ""
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}
