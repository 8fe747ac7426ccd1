package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

// ResolvedScope is a node's scope configuration together with the node.
type ResolvedScope struct {
	Node   models.Node
	Config emission.ScopeConfig
}

// resolveScope finds the configuration of (nodeID, scopeIdentifier) in the
// client's active flowchart.
func resolveScope(
	ctx context.Context,
	flowcharts store.FlowchartStore,
	clientID, nodeID, scopeIdentifier string,
) (*ResolvedScope, error) {
	chart, err := flowcharts.GetActiveFlowchart(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFlowchartNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading flowchart: %w", err)
	}

	node, ok := chart.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: node %q not in flowchart", ErrScopeConfigNotFound, nodeID)
	}
	cfg, ok := node.Scope(scopeIdentifier)
	if !ok {
		return nil, fmt.Errorf("%w: node %q has no scope %q", ErrScopeConfigNotFound, nodeID, scopeIdentifier)
	}

	resolved := &ResolvedScope{Node: *node, Config: *cfg}
	resolved.Config.Normalize()
	return resolved, nil
}

// parameterDriven lists the categories whose formulas can run on
// customValue or additionalInfo parameters alone.
//
//nolint:gochecknoglobals // Lookup table.
var parameterDriven = map[emission.CategoryKind]bool{
	emission.KindFugitiveRefrigeration: true,
	emission.KindFugitiveGeneric:       true,
	emission.KindFugitiveSF6:           true,
	emission.KindFugitiveCH4Leaks:      true,
	emission.KindProcessEmission:       true,
	emission.KindFuelEnergy:            true,
}

// checkFactorConfigured rejects a scope whose factor source resolves to no
// values. A named source with an empty table counts as missing. Categories
// that run on parameters pass when they carry a parameter bag. Unsupported
// categories and tier 3 are left to the calculators, which never produce
// numbers for them.
func checkFactorConfigured(cfg emission.ScopeConfig) error {
	kind := cfg.CategoryKind()
	if kind == emission.KindUnknown || cfg.Tier() == emission.Tier3 {
		return nil
	}
	r := emission.ResolveFactors(cfg)
	if r.HasFactor() || r.GWP.Refrigerant != 0 {
		return nil
	}
	if parameterDriven[kind] && (len(cfg.CustomValue) > 0 || len(cfg.AdditionalInfo) > 0) {
		return nil
	}
	if cfg.EmissionFactor != "" {
		return fmt.Errorf("%w: scope %q names %s but has no values for it",
			ErrEmissionFactorMissing, cfg.ScopeIdentifier, cfg.EmissionFactor)
	}
	return fmt.Errorf("%w: scope %q", ErrEmissionFactorMissing, cfg.ScopeIdentifier)
}
