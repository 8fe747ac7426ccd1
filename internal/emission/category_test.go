package emission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCategoryKind(t *testing.T) {
	tests := []struct {
		name     string
		scope    ScopeType
		category string
		activity string
		want     CategoryKind
	}{
		{name: "stationary combustion", scope: Scope1, category: "Stationary Combustion", want: KindCombustion},
		{name: "mobile combustion", scope: Scope1, category: "Mobile Combustion", want: KindCombustion},
		{name: "SF6 before generic fugitive", scope: Scope1, category: "Fugitive Emissions", activity: "SF6 switchgear", want: KindFugitiveSF6},
		{name: "CH4 leaks", scope: Scope1, category: "Fugitive Emissions", activity: "CH4_Leaks", want: KindFugitiveCH4Leaks},
		{name: "refrigeration", scope: Scope1, category: "Fugitive Emissions", activity: "Refrigeration", want: KindFugitiveRefrigeration},
		{name: "generic fugitive", scope: Scope1, category: "Fugitive Emissions", activity: "Fire suppression", want: KindFugitiveGeneric},
		{name: "process", scope: Scope1, category: "Process Emission", want: KindProcessEmission},
		{name: "scope1 unknown", scope: Scope1, category: "Something else", want: KindUnknown},
		{name: "purchased electricity", scope: Scope2, category: "Purchased Electricity", want: KindPurchasedElectricity},
		{name: "purchased cooling", scope: Scope2, category: "purchased_cooling", want: KindPurchasedCooling},
		{name: "purchased fuel unsupported", scope: Scope2, category: "Purchased Fuel", want: KindUnknown},
		{name: "business travel", scope: Scope3, category: "Business Travel", want: KindBusinessTravel},
		{name: "end of life", scope: Scope3, category: "End-of-Life Treatment of Sold Products", want: KindEndOfLife},
		{name: "upstream leased", scope: Scope3, category: "Upstream Leased Assets", want: KindUpstreamLeasedAssets},
		{name: "downstream transport", scope: Scope3, category: "Downstream Transportation and Distribution", want: KindDownstreamTransport},
		{name: "fuel and energy", scope: Scope3, category: "Fuel and energy Related Activities", want: KindFuelEnergy},
		{name: "scope mismatch", scope: Scope2, category: "Business Travel", want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCategoryKind(tt.scope, tt.category, tt.activity))
		})
	}
}

func TestScopeConfig_Normalize(t *testing.T) {
	cfg := ScopeConfig{ScopeType: "scope3", CategoryName: "Franchises"}
	cfg.Normalize()
	assert.Equal(t, Scope3, cfg.ScopeType)
	assert.Equal(t, KindFranchises, cfg.Kind)
	assert.Equal(t, KindFranchises, cfg.CategoryKind())
}

func TestParseHelpers(t *testing.T) {
	st, ok := ParseScopeType("SCOPE_2")
	assert.True(t, ok)
	assert.Equal(t, Scope2, st)
	_, ok = ParseScopeType("Scope 4")
	assert.False(t, ok)

	assert.Equal(t, Tier2, ParseTier("Tier 2"))
	assert.Equal(t, Tier3, ParseTier("tier3"))
	assert.Equal(t, Tier1, ParseTier(""))
	assert.Equal(t, "tier 2", Tier2.String())

	assert.Equal(t, VariantHotelBased, ParseActivityVariant("Hotel Based"))
	assert.Equal(t, VariantAreaBased, ParseActivityVariant("area-based"))
	assert.Equal(t, VariantUnset, ParseActivityVariant(" "))
	assert.Equal(t, VariantOther, ParseActivityVariant("spend"))
}
