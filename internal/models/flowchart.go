package models

import (
	"time"

	"github.com/rshade/carbonledger/internal/emission"
)

// Node is one organizational unit in a client's flowchart.
type Node struct {
	ID           string                 `json:"id" yaml:"id" validate:"required"`
	Label        string                 `json:"label" yaml:"label"`
	Department   string                 `json:"department" yaml:"department"`
	Location     string                 `json:"location" yaml:"location"`
	ScopeDetails []emission.ScopeConfig `json:"scopeDetails" yaml:"scopeDetails" validate:"dive"`
}

// Flowchart is the organizational structure and scope configuration of a
// client. At most one flowchart per client is active.
type Flowchart struct {
	ID        string    `json:"id" yaml:"id"`
	ClientID  string    `json:"clientId" yaml:"clientId" validate:"required"`
	IsActive  bool      `json:"isActive" yaml:"isActive"`
	Nodes     []Node    `json:"nodes" yaml:"nodes" validate:"dive"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// Node returns the node with the given ID.
func (f *Flowchart) Node(id string) (*Node, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i], true
		}
	}
	return nil, false
}

// Scope returns the scope configuration with the given identifier.
func (n *Node) Scope(identifier string) (*emission.ScopeConfig, bool) {
	for i := range n.ScopeDetails {
		if n.ScopeDetails[i].ScopeIdentifier == identifier {
			return &n.ScopeDetails[i], true
		}
	}
	return nil, false
}

// NormalizeScopes resolves the category kind of every scope configuration.
func (f *Flowchart) NormalizeScopes() {
	for i := range f.Nodes {
		for j := range f.Nodes[i].ScopeDetails {
			f.Nodes[i].ScopeDetails[j].Normalize()
		}
	}
}
