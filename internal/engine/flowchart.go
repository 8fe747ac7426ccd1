package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/validation"
)

// ErrInvalidFlowchart is wrapped by structural flowchart problems.
var ErrInvalidFlowchart = errors.New("invalid flowchart")

// FlowchartWarning flags a scope that imports but cannot be calculated yet.
type FlowchartWarning struct {
	NodeID          string `json:"nodeId"`
	ScopeIdentifier string `json:"scopeIdentifier"`
	Message         string `json:"message"`
}

// ImportFlowchart validates f, makes it the client's active flowchart and
// returns the scopes that records could not be calculated against.
// Duplicate node IDs or scope identifiers within a node are rejected.
func (s *Service) ImportFlowchart(ctx context.Context, f *models.Flowchart) ([]FlowchartWarning, error) {
	if err := validation.ValidateStruct(f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlowchart, err)
	}
	if err := checkUniqueIDs(f); err != nil {
		return nil, err
	}

	f.NormalizeScopes()
	var warnings []FlowchartWarning
	for _, n := range f.Nodes {
		for _, sc := range n.ScopeDetails {
			if msg := scopeWarning(sc); msg != "" {
				warnings = append(warnings, FlowchartWarning{NodeID: n.ID, ScopeIdentifier: sc.ScopeIdentifier, Message: msg})
			}
		}
	}

	if f.ID == "" {
		f.ID = ulid.Make().String()
	}
	f.IsActive = true
	f.UpdatedAt = s.now().UTC()
	if err := s.flowcharts.PutFlowchart(ctx, f); err != nil {
		return nil, fmt.Errorf("saving flowchart: %w", err)
	}

	logging.FromContext(ctx).Info().
		Str("component", "engine").
		Str("operation", "import_flowchart").
		Str("client_id", f.ClientID).
		Str("flowchart_id", f.ID).
		Int("nodes", len(f.Nodes)).
		Int("warnings", len(warnings)).
		Msg("flowchart imported")
	return warnings, nil
}

func checkUniqueIDs(f *models.Flowchart) error {
	nodes := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if nodes[n.ID] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidFlowchart, n.ID)
		}
		nodes[n.ID] = true
		scopes := make(map[string]bool, len(n.ScopeDetails))
		for _, sc := range n.ScopeDetails {
			if scopes[sc.ScopeIdentifier] {
				return fmt.Errorf("%w: node %q has duplicate scope %q", ErrInvalidFlowchart, n.ID, sc.ScopeIdentifier)
			}
			scopes[sc.ScopeIdentifier] = true
		}
	}
	return nil
}

func scopeWarning(cfg emission.ScopeConfig) string {
	if _, ok := emission.ParseScopeType(string(cfg.ScopeType)); !ok {
		return fmt.Sprintf("unrecognized scope type %q", cfg.ScopeType)
	}
	if cfg.Kind == emission.KindUnknown {
		return fmt.Sprintf("category %q is not supported for %s", cfg.CategoryName, cfg.ScopeType)
	}
	if err := checkFactorConfigured(cfg); err != nil {
		return err.Error()
	}
	return ""
}
