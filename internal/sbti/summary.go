package sbti

import (
	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
)

// BaseFromSummary reads per-scope base emissions, in tonnes CO2e, from a
// yearly summary.
func BaseFromSummary(s *models.EmissionSummary) models.ScopeEmissions {
	if s == nil {
		return models.ScopeEmissions{}
	}
	return models.ScopeEmissions{
		Scope1: s.ByScope[string(emission.Scope1)].CO2e,
		Scope2: s.ByScope[string(emission.Scope2)].CO2e,
		Scope3: s.ByScope[string(emission.Scope3)].CO2e,
	}
}
