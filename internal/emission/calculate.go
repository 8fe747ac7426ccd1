package emission

import "fmt"

// MessageTier3 is returned for tier 3 configurations.
const MessageTier3 = "Tier 3 calculations are under development"

// Calculate dispatches in to the calculator for its scope type.
func Calculate(in Input) Result {
	st, ok := ParseScopeType(string(in.Config.ScopeType))
	if !ok {
		return Result{
			Success:   false,
			ScopeType: in.Config.ScopeType,
			Category:  in.Config.CategoryName,
			Message:   fmt.Sprintf("unsupported scope type %q", in.Config.ScopeType),
		}
	}
	switch st {
	case Scope1:
		return CalculateScope1(in)
	case Scope2:
		return CalculateScope2(in)
	default:
		return CalculateScope3(in)
	}
}

// gasesFor applies the resolved factors to quantity q. With a blended
// factor only CO2e is populated.
func gasesFor(q float64, r Resolved) GasValues {
	if r.Factors.Blended {
		return GasValues{CO2e: q * r.Factors.CO2e}
	}
	g := GasValues{
		CO2: q * r.Factors.CO2,
		CH4: q * r.Factors.CH4,
		N2O: q * r.Factors.N2O,
	}
	g.CO2e = g.CO2 + g.CH4*r.GWP.CH4 + g.N2O*r.GWP.N2O
	return g
}

// co2eOnly wraps an already-weighted CO2e figure.
func co2eOnly(v float64) GasValues {
	return GasValues{CO2e: v}
}

// builder accumulates results into both buckets and attaches uncertainty.
type builder struct {
	uad, uef float64
	em       Emissions
}

func newBuilder(cfg ScopeConfig) *builder {
	return &builder{uad: cfg.UAD, uef: cfg.UEF, em: NewEmissions()}
}

// put evaluates fn for both sides and stores the results under key.
func (b *builder) put(key string, fn func(s side) GasValues) {
	b.em.Incoming[key] = withUncertainty(fn(incomingSide), b.uad, b.uef)
	b.em.Cumulative[key] = withUncertainty(fn(cumulativeSide), b.uad, b.uef)
}

func (b *builder) result(scope ScopeType, cfg ScopeConfig, tier Tier) Result {
	return Result{
		Success:   true,
		ScopeType: scope,
		Category:  cfg.CategoryName,
		Tier:      tier,
		Emissions: b.em,
	}
}

// param reads a rate or parameter: the incoming row first, then the scope
// configuration bags. Parameters are never summed across records.
func (in Input) param(def float64, keys ...string) float64 {
	groups := [][]Candidate{Try(FromFloats(in.Incoming), keys...)}
	for _, l := range in.Config.params() {
		groups = append(groups, Try(l, keys...))
	}
	return FirstPresentOr(def, groups...)
}

// configFirstParam reads a parameter preferring the scope configuration
// over the incoming row.
func (in Input) configFirstParam(def float64, keys ...string) float64 {
	var groups [][]Candidate
	for _, l := range in.Config.params() {
		groups = append(groups, Try(l, keys...))
	}
	groups = append(groups, Try(FromFloats(in.Incoming), keys...))
	return FirstPresentOr(def, groups...)
}

// configString reads a string option from the configuration bags.
func (in Input) configString(keys ...string) string {
	return FirstString([]map[string]any{in.Config.CustomValue, in.Config.AdditionalInfo}, keys...)
}
