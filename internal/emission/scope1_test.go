package emission

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func combustionConfig(uad, uef float64) ScopeConfig {
	return ScopeConfig{
		ScopeIdentifier:  "boiler-1",
		ScopeType:        Scope1,
		CategoryName:     "Stationary Combustion",
		CalculationModel: "tier 1",
		EmissionFactor:   SourceDEFRA,
		EmissionFactorValues: FactorValues{DefraData: []GasFactorEntry{
			{Unit: "kg CO2", GHGConversionFactor: 2},
			{Unit: "kg CH4", GHGConversionFactor: 0.01, GWPValue: 28},
			{Unit: "kg N2O", GHGConversionFactor: 0.001, GWPValue: 265},
		}},
		UAD: uad,
		UEF: uef,
	}
}

func TestCalculateScope1_Combustion(t *testing.T) {
	in := Input{
		Config:     combustionConfig(5, 10),
		Incoming:   map[string]float64{"fuelConsumed": 10},
		Cumulative: map[string]float64{"fuelConsumed": 30},
	}

	res := CalculateScope1(in)
	require.True(t, res.Success)
	assert.Equal(t, Scope1, res.ScopeType)
	assert.Equal(t, Tier1, res.Tier)

	inc := res.Emissions.Incoming["fuelConsumed"]
	assert.InDelta(t, 20, inc.CO2, tolerance)
	assert.InDelta(t, 0.1, inc.CH4, tolerance)
	assert.InDelta(t, 0.01, inc.N2O, tolerance)
	assert.InDelta(t, 25.45, inc.CO2e, tolerance)
	assert.InDelta(t, inc.CO2+inc.CH4*28+inc.N2O*265, inc.CO2e, tolerance)

	wantUnc := 25.45 * math.Sqrt(5*5+10*10) / 100
	assert.InDelta(t, wantUnc, inc.CombinedUncertainty, tolerance)
	assert.InDelta(t, 25.45+wantUnc, inc.CO2eWithUncertainty, tolerance)

	cum := res.Emissions.Cumulative["fuelConsumed"]
	assert.InDelta(t, 3*25.45, cum.CO2e, tolerance)
}

func TestCalculateScope1_CombustionEveryField(t *testing.T) {
	in := Input{
		Config:   combustionConfig(0, 0),
		Incoming: map[string]float64{"diesel": 1, "petrol": 2},
	}
	res := CalculateScope1(in)
	require.Len(t, res.Emissions.Incoming, 2)
	assert.InDelta(t, 2.545, res.Emissions.Incoming["diesel"].CO2e, tolerance)
	assert.InDelta(t, 5.09, res.Emissions.Incoming["petrol"].CO2e, tolerance)
	// Missing cumulative falls back to the incoming value.
	assert.InDelta(t, 5.09, res.Emissions.Cumulative["petrol"].CO2e, tolerance)
}

func TestCalculateScope1_Fugitive(t *testing.T) {
	base := ScopeConfig{
		ScopeType:      Scope1,
		CategoryName:   "Fugitive Emissions",
		EmissionFactor: SourceCustom,
		EmissionFactorValues: FactorValues{CustomEmissionFactor: &CustomFactor{
			RefrigerantGWP: 2000,
		}},
	}

	tests := []struct {
		name       string
		activity   string
		model      string
		customVal  map[string]any
		incoming   map[string]float64
		cumulative map[string]float64
		key        string
		wantInc    float64
		wantCum    float64
	}{
		{
			name:       "refrigeration tier 1 with percent leak rate",
			activity:   "Refrigeration",
			model:      "tier 1",
			customVal:  map[string]any{"leakageRate": 5},
			incoming:   map[string]float64{"numberOfUnits": 10},
			cumulative: map[string]float64{"numberOfUnits": 20},
			key:        KeyRefrigeration,
			wantInc:    10 * 0.05 * 2000,
			wantCum:    20 * 0.05 * 2000,
		},
		{
			name:     "refrigeration tier 2 stock change",
			activity: "Refrigeration",
			model:    "tier 2",
			incoming: map[string]float64{
				"installedCapacity": 100, "endYearCapacity": 80, "purchases": 10, "disposals": 5,
			},
			key:     KeyRefrigeration,
			wantInc: 25 * 2000,
			wantCum: 25 * 2000,
		},
		{
			name:      "generic fugitive uses refrigeration formula",
			activity:  "Fire suppression",
			model:     "tier 1",
			customVal: map[string]any{"leakageRate": 0.1},
			incoming:  map[string]float64{"numberOfUnits": 3},
			key:       KeyFugitive,
			wantInc:   3 * 0.1 * 2000,
			wantCum:   3 * 0.1 * 2000,
		},
		{
			name:      "SF6 tier 1 default GWP",
			activity:  "SF6",
			model:     "tier 1",
			customVal: map[string]any{"sf6LeakageRate": "0.005"},
			incoming:  map[string]float64{"nameplateCapacity": 100},
			key:       KeySF6,
			wantInc:   100 * 0.005 * 23500,
			wantCum:   100 * 0.005 * 23500,
		},
		{
			name:      "SF6 tier 2 inventory change",
			activity:  "SF6",
			model:     "tier 2",
			customVal: map[string]any{"sf6GWP": 22800},
			incoming: map[string]float64{
				"decreaseInventory": 5, "acquisitions": 2, "disbursements": 1, "netCapacityIncrease": 1,
			},
			key:     KeySF6,
			wantInc: 5 * 22800,
			wantCum: 5 * 22800,
		},
		{
			name:      "CH4 leaks tier 1",
			activity:  "CH4 Leaks",
			model:     "tier 1",
			customVal: map[string]any{"ch4LeakEF": 0.2, "ch4LeakGWP": 30},
			incoming:  map[string]float64{"activityData": 50},
			key:       KeyCH4Leaks,
			wantInc:   50 * 0.2 * 30,
			wantCum:   50 * 0.2 * 30,
		},
		{
			name:      "CH4 leaks tier 2",
			activity:  "CH4 Leaks",
			model:     "tier 2",
			customVal: map[string]any{"componentEF": 0.5, "componentGWP": 28},
			incoming:  map[string]float64{"numberOfComponents": 4},
			key:       KeyCH4Leaks,
			wantInc:   4 * 0.5 * 28,
			wantCum:   4 * 0.5 * 28,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Activity = tt.activity
			cfg.CalculationModel = tt.model
			cfg.CustomValue = tt.customVal
			res := CalculateScope1(Input{Config: cfg, Incoming: tt.incoming, Cumulative: tt.cumulative})
			require.True(t, res.Success)
			require.Contains(t, res.Emissions.Incoming, tt.key)
			assert.InDelta(t, tt.wantInc, res.Emissions.Incoming[tt.key].CO2e, 1e-6)
			assert.InDelta(t, tt.wantCum, res.Emissions.Cumulative[tt.key].CO2e, 1e-6)
		})
	}
}

func TestCalculateScope1_Process(t *testing.T) {
	cfg := ScopeConfig{
		ScopeType:    Scope1,
		CategoryName: "Process Emission",
		CustomValue:  map[string]any{"industryAverageEF": 0.5},
	}

	res := CalculateScope1(Input{Config: cfg, Incoming: map[string]float64{"productionOutput": 40}})
	assert.InDelta(t, 20, res.Emissions.Incoming[KeyProcessEmission].CO2e, tolerance)
	assert.InDelta(t, 20, res.Emissions.Incoming[KeyProcessEmission].CO2, tolerance)

	cfg.CalculationModel = "tier 2"
	cfg.CustomValue = map[string]any{"stoichiometricFactor": 0.44, "conversionEfficiency": 95}
	res = CalculateScope1(Input{Config: cfg, Incoming: map[string]float64{"rawMaterialInput": 100}})
	assert.InDelta(t, 100*0.44*0.95, res.Emissions.Incoming[KeyProcessEmission].CO2e, tolerance)
}

func TestCalculateScope1_Tier3(t *testing.T) {
	cfg := combustionConfig(0, 0)
	cfg.CalculationModel = "tier 3"
	res := CalculateScope1(Input{Config: cfg, Incoming: map[string]float64{"fuelConsumed": 10}})
	assert.True(t, res.Success)
	assert.Equal(t, MessageTier3, res.Message)
	assert.True(t, res.Emissions.IsEmpty())
}

func TestCalculateScope1_UnknownCategory(t *testing.T) {
	res := CalculateScope1(Input{
		Config:   ScopeConfig{ScopeType: Scope1, CategoryName: "Carbon capture"},
		Incoming: map[string]float64{"x": 1},
	})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.True(t, res.Emissions.IsEmpty())
}

func TestCalculate_Dispatch(t *testing.T) {
	res := Calculate(Input{Config: ScopeConfig{ScopeType: "Scope 9"}})
	assert.False(t, res.Success)

	res = Calculate(Input{Config: combustionConfig(0, 0), Incoming: map[string]float64{"fuelConsumed": 10}})
	assert.Equal(t, Scope1, res.ScopeType)
	assert.InDelta(t, 25.45, res.Emissions.Incoming["fuelConsumed"].CO2e, tolerance)
}

func TestUncertaintyHoldsForAllEntries(t *testing.T) {
	cfg := combustionConfig(3, 4)
	res := CalculateScope1(Input{Config: cfg, Incoming: map[string]float64{"a": 7, "b": 11}})
	for key, g := range res.Emissions.Incoming {
		assert.InDelta(t, g.CO2e*5/100, g.CombinedUncertainty, tolerance, key)
		assert.InDelta(t, g.CO2e+g.CombinedUncertainty, g.CO2eWithUncertainty, tolerance, key)
	}
}
