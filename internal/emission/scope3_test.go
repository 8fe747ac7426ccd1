package emission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scope3Config(category, model string) ScopeConfig {
	return ScopeConfig{
		ScopeType:        Scope3,
		CategoryName:     category,
		CalculationModel: model,
		EmissionFactor:   SourceCustom,
		EmissionFactorValues: FactorValues{CustomEmissionFactor: &CustomFactor{
			CO2: 2,
		}},
	}
}

func co2e(res Result, key string) float64 {
	return res.Emissions.Incoming[key].CO2e
}

func cumCO2e(res Result, key string) float64 {
	return res.Emissions.Cumulative[key].CO2e
}

func TestCalculateScope3_SimpleDrivers(t *testing.T) {
	tests := []struct {
		name     string
		category string
		model    string
		activity string
		incoming map[string]float64
		key      string
		want     float64
	}{
		{name: "purchased goods spend", category: "Purchased Goods and Services", model: "tier 1",
			incoming: map[string]float64{"procurementSpend": 100}, key: KeyPurchasedGoods, want: 200},
		{name: "purchased goods physical", category: "Purchased Goods and Services", model: "tier 2",
			incoming: map[string]float64{"physicalQuantity": 7}, key: KeyPurchasedGoods, want: 14},
		{name: "capital goods spend", category: "Capital Goods", model: "tier 1",
			incoming: map[string]float64{"procurementSpend": 5}, key: KeyCapitalGoods, want: 10},
		{name: "upstream transport spend", category: "Upstream Transportation and Distribution", model: "tier 1",
			incoming: map[string]float64{"transportationSpend": 3}, key: KeyUpstreamTransport, want: 6},
		{name: "downstream transport tonne km", category: "Downstream Transportation and Distribution", model: "tier 2",
			incoming: map[string]float64{"mass": 10, "distance": 100}, key: KeyDownstreamTransport, want: 2000},
		{name: "business travel spend", category: "Business Travel", model: "tier 1", activity: "travel based",
			incoming: map[string]float64{"travelSpend": 50}, key: KeyBusinessTravel, want: 100},
		{name: "business travel passenger km", category: "Business Travel", model: "tier 2", activity: "Travel Based",
			incoming: map[string]float64{"numberOfPassengers": 2, "distanceTravelled": 300}, key: KeyBusinessTravel, want: 1200},
		{name: "hotel stay", category: "Business Travel", model: "tier 1", activity: "hotel based",
			incoming: map[string]float64{"hotelNights": 4}, key: KeyHotelStay, want: 8},
		{name: "commuting average", category: "Employee Commuting", model: "tier 1",
			incoming: map[string]float64{"employeeCount": 10, "averageCommuteDistance": 20, "workingDays": 5}, key: KeyEmployeeCommuting, want: 2000},
		{name: "commuting total distance", category: "Employee Commuting", model: "tier 2",
			incoming: map[string]float64{"totalCommuteDistance": 1000}, key: KeyEmployeeCommuting, want: 2000},
		{name: "leased tier 1", category: "Upstream Leased Assets", model: "tier 1",
			incoming: map[string]float64{"leasedArea": 30}, key: KeyUpstreamLeased, want: 60},
		{name: "leased energy based", category: "Downstream Leased Assets", model: "tier 2", activity: "energy based",
			incoming: map[string]float64{"energyConsumption": 12}, key: KeyDownstreamLeased, want: 24},
		{name: "processing sold tier 1", category: "Processing of Sold Products", model: "tier 1",
			incoming: map[string]float64{"productQuantity": 8}, key: KeyProcessingSold, want: 16},
		{name: "processing sold tier 2", category: "Processing of Sold Products", model: "tier 2",
			incoming: map[string]float64{"processingEnergy": 9}, key: KeyProcessingSold, want: 18},
		{name: "use of sold tier 1", category: "Use of Sold Products", model: "tier 1",
			incoming: map[string]float64{"unitsSold": 100}, key: KeyUseOfSold, want: 200},
		{name: "use of sold tier 2", category: "Use of Sold Products", model: "tier 2",
			incoming: map[string]float64{"unitsSold": 10, "energyPerUse": 0.5, "usesPerYear": 100, "productLifetime": 2},
			key: KeyUseOfSold, want: 10 * 0.5 * 100 * 2 * 2},
		{name: "franchise count", category: "Franchises", model: "tier 1",
			incoming: map[string]float64{"franchiseCount": 3}, key: KeyFranchises, want: 6},
		{name: "investments amount", category: "Investments", model: "tier 1",
			incoming: map[string]float64{"investmentAmount": 1000}, key: KeyInvestments, want: 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scope3Config(tt.category, tt.model)
			cfg.Activity = tt.activity
			res := CalculateScope3(Input{Config: cfg, Incoming: tt.incoming})
			require.True(t, res.Success)
			assert.Equal(t, Scope3, res.ScopeType)
			assert.Equal(t, tt.category, res.Category)
			require.Contains(t, res.Emissions.Incoming, tt.key)
			assert.InDelta(t, tt.want, co2e(res, tt.key), 1e-6)
		})
	}
}

func TestCalculateScope3_CapitalGoodsLifetime(t *testing.T) {
	cfg := scope3Config("Capital Goods", "tier 2")
	in := Input{Config: cfg, Incoming: map[string]float64{"assetQuantity": 10}}

	res := CalculateScope3(in)
	assert.InDelta(t, 20, co2e(res, KeyCapitalGoods), tolerance, "default lifetime is 1")

	cfg.AdditionalInfo = map[string]any{"usefulLife": 4}
	res = CalculateScope3(Input{Config: cfg, Incoming: in.Incoming})
	assert.InDelta(t, 5, co2e(res, KeyCapitalGoods), tolerance)

	cfg.CustomValue = map[string]any{"assetLifetime": 0}
	res = CalculateScope3(Input{Config: cfg, Incoming: in.Incoming})
	assert.InDelta(t, 20, co2e(res, KeyCapitalGoods), tolerance, "zero lifetime is treated as 1")
}

func TestCalculateScope3_FuelAndEnergy(t *testing.T) {
	cfg := scope3Config("Fuel and Energy Related Activities", "tier 1")
	cfg.CustomValue = map[string]any{"wttEF": 0.3, "tdLossFactor": 5}
	cfg.EmissionFactorValues.CountryData = &CountryFactor{YearlyValues: []YearlyValue{
		{From: "2023-01-01", Value: 0.4},
	}}

	res := CalculateScope3(Input{
		Config:     cfg,
		Incoming:   map[string]float64{"fuelConsumed": 100, "electricityConsumed": 1000},
		Cumulative: map[string]float64{"fuelConsumed": 300, "electricityConsumed": 2000},
	})

	require.Len(t, res.Emissions.Incoming, 3)
	assert.InDelta(t, 200, co2e(res, KeyUpstreamFuel), tolerance)
	assert.InDelta(t, 30, co2e(res, KeyWTT), tolerance)
	assert.InDelta(t, 1000*0.05*0.4, co2e(res, KeyTDLosses), tolerance)
	assert.InDelta(t, 600, cumCO2e(res, KeyUpstreamFuel), tolerance)
	assert.InDelta(t, 2000*0.05*0.4, cumCO2e(res, KeyTDLosses), tolerance)
}

func TestCalculateScope3_WasteRecyclingRateForms(t *testing.T) {
	run := func(rate any) float64 {
		cfg := scope3Config("Waste Generated in Operations", "tier 1")
		cfg.CustomValue = map[string]any{"recyclingRate": rate}
		return co2e(CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"wasteMass": 100}}), KeyWasteGenerated)
	}
	assert.InDelta(t, 120, run(40), tolerance)
	assert.InDelta(t, run(40), run(0.4), tolerance)
	assert.InDelta(t, run(40), run("40"), tolerance)
}

func TestCalculateScope3_WasteConfigBeatsPayload(t *testing.T) {
	cfg := scope3Config("Waste Generated in Operations", "tier 1")
	cfg.AdditionalInfo = map[string]any{"recyclingRate": 50}
	res := CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"wasteMass": 10, "recyclingRate": 0.9}})
	assert.InDelta(t, 10, co2e(res, KeyWasteGenerated), tolerance)

	cfg.AdditionalInfo = nil
	res = CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"wasteMass": 10, "recyclingRate": 0.9}})
	assert.InDelta(t, 2, co2e(res, KeyWasteGenerated), 1e-9)
}

func TestCalculateScope3_WasteTier2Treatment(t *testing.T) {
	cfg := scope3Config("Waste Generated in Operations", "tier 2")
	cfg.AdditionalInfo = map[string]any{"treatmentMethod": "Landfill", "recyclingRate": 50}
	res := CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"wasteMass": 10}})
	assert.InDelta(t, 20, co2e(res, "waste_landfill"), tolerance, "recycling ignored when a treatment is set")

	cfg.AdditionalInfo = map[string]any{"recyclingRate": 50}
	res = CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"wasteMass": 10}})
	assert.InDelta(t, 10, co2e(res, KeyWasteGenerated), tolerance)
}

func TestCalculateScope3_LeasedAreaBased(t *testing.T) {
	cfg := scope3Config("Upstream Leased Assets", "tier 2")
	cfg.Activity = "area based"
	cfg.CustomValue = map[string]any{"occupancyFactor": 0.5}

	res := CalculateScope3(Input{
		Config:     cfg,
		Incoming:   map[string]float64{"leasedArea": 100, "totalArea": 1000, "BuildingTotalS1_S2": 500},
		Cumulative: map[string]float64{"BuildingTotalS1_S2": 1500},
	})
	ratio := 100.0 / (1000 * 0.5)
	assert.InDelta(t, ratio*500, co2e(res, KeyUpstreamLeased), tolerance)
	assert.InDelta(t, ratio*1500, cumCO2e(res, KeyUpstreamLeased), tolerance)

	res = CalculateScope3(Input{
		Config:   cfg,
		Incoming: map[string]float64{"leasedArea": 100, "totalArea": 0, "BuildingTotalS1_S2": 500},
	})
	assert.Zero(t, co2e(res, KeyUpstreamLeased))
}

func TestCalculateScope3_EndOfLife(t *testing.T) {
	t.Run("tier 1 fractions with single factor", func(t *testing.T) {
		cfg := scope3Config("End-of-Life Treatment of Sold Products", "tier 1")
		cfg.CustomValue = map[string]any{"disposalFraction": 20, "landfillFraction": 0.5}
		res := CalculateScope3(Input{
			Config:   cfg,
			Incoming: map[string]float64{"totalMass": 100, "incinerationFraction": 0.5},
		})
		assert.InDelta(t, 40, co2e(res, KeyEOLDisposal), tolerance)
		assert.InDelta(t, 100, co2e(res, KeyEOLLandfill), tolerance)
		assert.InDelta(t, 100, co2e(res, KeyEOLIncineration), tolerance)
	})

	t.Run("tier 2 masses with hub slots", func(t *testing.T) {
		cfg := ScopeConfig{
			ScopeType:        Scope3,
			CategoryName:     "End of Life Treatment of Sold Products",
			CalculationModel: "tier 2",
			EmissionFactor:   SourceHub,
			EmissionFactorValues: FactorValues{EmissionFactorHubData: &HubFactor{
				Value: 9,
				Factors: []HubFactorSlot{
					{Label: "disposal", Value: 1},
					{Label: "landfill", Value: 2},
					{Label: "incineration", Value: 3},
				},
			}},
		}
		res := CalculateScope3(Input{
			Config:   cfg,
			Incoming: map[string]float64{"massDisposed": 10, "massLandfilled": 10, "massIncinerated": 10},
		})
		assert.InDelta(t, 10, co2e(res, KeyEOLDisposal), tolerance)
		assert.InDelta(t, 20, co2e(res, KeyEOLLandfill), tolerance)
		assert.InDelta(t, 30, co2e(res, KeyEOLIncineration), tolerance)
	})
}

func TestCalculateScope3_FranchisesAndInvestments(t *testing.T) {
	tests := []struct {
		name     string
		category string
		activity string
		custom   map[string]any
		incoming map[string]float64
		key      string
		want     float64
	}{
		{name: "franchise emission based", category: "Franchises", activity: "emission based",
			incoming: map[string]float64{"franchiseTotalS1": 10, "franchiseTotalS2": 5, "energyConsumption": 100},
			key:      KeyFranchises, want: 15},
		{name: "franchise energy based", category: "Franchises", activity: "energy based",
			incoming: map[string]float64{"franchiseTotalS1": 10, "energyConsumption": 100},
			key:      KeyFranchises, want: 200},
		{name: "franchise legacy prefers emissions", category: "Franchises",
			incoming: map[string]float64{"franchiseTotalS1": 10, "energyConsumption": 100},
			key:      KeyFranchises, want: 10},
		{name: "franchise legacy falls back to energy", category: "Franchises",
			incoming: map[string]float64{"energyConsumption": 100},
			key:      KeyFranchises, want: 200},
		{name: "investment equity share percent", category: "Investments", activity: "Emission Based",
			custom:   map[string]any{"equityShare": 25},
			incoming: map[string]float64{"investeeScope1": 100, "investeeScope2": 300},
			key:      KeyInvestments, want: 100},
		{name: "investment equity default", category: "Investments", activity: "emission based",
			incoming: map[string]float64{"investeeScope1": 100, "investeeScope2": 300},
			key:      KeyInvestments, want: 400},
		{name: "investment energy based", category: "Investments", activity: "energy based",
			incoming: map[string]float64{"energyConsumption": 7},
			key:      KeyInvestments, want: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scope3Config(tt.category, "tier 2")
			cfg.Activity = tt.activity
			cfg.CustomValue = tt.custom
			res := CalculateScope3(Input{Config: cfg, Incoming: tt.incoming})
			assert.InDelta(t, tt.want, co2e(res, tt.key), tolerance)
		})
	}
}

func TestCalculateScope3_NoDriversIsEmptySuccess(t *testing.T) {
	cfg := scope3Config("Franchises", "tier 2")
	res := CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{}})
	assert.True(t, res.Success)
	assert.True(t, res.Emissions.IsEmpty())
}

func TestCalculateScope3_UnknownCategoryAndTier3(t *testing.T) {
	res := CalculateScope3(Input{Config: scope3Config("Carbon removals", "tier 1")})
	assert.True(t, res.Success)
	assert.True(t, res.Emissions.IsEmpty())

	res = CalculateScope3(Input{Config: scope3Config("Capital Goods", "tier 3"), Incoming: map[string]float64{"assetQuantity": 1}})
	assert.True(t, res.Success)
	assert.Equal(t, MessageTier3, res.Message)
	assert.True(t, res.Emissions.IsEmpty())
}

func TestCalculateScope3_UncertaintyOnEveryBranch(t *testing.T) {
	cfg := scope3Config("Fuel and Energy Related Activities", "tier 1")
	cfg.UAD = 6
	cfg.UEF = 8
	cfg.CustomValue = map[string]any{"wttEF": 0.1, "tdLossFactor": 0.1}
	cfg.EmissionFactorValues.CountryData = &CountryFactor{YearlyValues: []YearlyValue{{From: "2024", Value: 1}}}
	res := CalculateScope3(Input{Config: cfg, Incoming: map[string]float64{"fuelConsumed": 10, "electricityConsumed": 10}})
	for key, g := range res.Emissions.Incoming {
		assert.InDelta(t, g.CO2e*10/100, g.CombinedUncertainty, tolerance, key)
	}
}
