package models

import (
	"time"

	"github.com/rshade/carbonledger/internal/emission"
)

// Totals accumulates gas quantities in tonnes.
type Totals struct {
	CO2e           float64 `json:"CO2e"`
	CO2            float64 `json:"CO2"`
	CH4            float64 `json:"CH4"`
	N2O            float64 `json:"N2O"`
	Uncertainty    float64 `json:"uncertainty"`
	DataPointCount int     `json:"dataPointCount"`
}

// Add folds one data point into t.
func (t *Totals) Add(g emission.GasValues) {
	t.CO2e += g.CO2e
	t.CO2 += g.CO2
	t.CH4 += g.CH4
	t.N2O += g.N2O
	t.Uncertainty += g.CombinedUncertainty
	t.DataPointCount++
}

// CategoryTotals is a category bucket with its activities nested.
type CategoryTotals struct {
	Totals
	ScopeType  emission.ScopeType `json:"scopeType"`
	Activities map[string]Totals  `json:"activities"`
}

// ActivityTotals is an activity bucket.
type ActivityTotals struct {
	Totals
	ScopeType    emission.ScopeType `json:"scopeType"`
	CategoryName string             `json:"categoryName"`
}

// NodeTotals is a node bucket with its per-scope split.
type NodeTotals struct {
	Totals
	Label      string            `json:"label"`
	Department string            `json:"department"`
	Location   string            `json:"location"`
	ByScope    map[string]Totals `json:"byScope"`
}

// AreaTotals groups nodes by department or location.
type AreaTotals struct {
	Totals
	NodeCount int `json:"nodeCount"`
}

// FactorTotals groups by emission factor source and counts the scope types
// that used it.
type FactorTotals struct {
	Totals
	ScopeTypes map[string]int `json:"scopeTypes"`
}

// Direction of a trend.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// Trend compares a value with the previous period.
type Trend struct {
	Value      float64   `json:"value"`
	Percentage float64   `json:"percentage"`
	Direction  Direction `json:"direction"`
}

// Trends holds the comparisons against the previous period.
type Trends struct {
	Previous       Period           `json:"previous"`
	TotalEmissions Trend            `json:"totalEmissions"`
	ByScope        map[string]Trend `json:"byScope"`
}

// EntryError records an activity record that could not be aggregated.
type EntryError struct {
	RecordID string `json:"recordId"`
	Message  string `json:"message"`
}

// SummaryMetadata describes how a summary was produced.
type SummaryMetadata struct {
	TotalDataPoints     int          `json:"totalDataPoints"`
	DataEntriesIncluded int          `json:"dataEntriesIncluded"`
	LastCalculated      time.Time    `json:"lastCalculated"`
	Version             int          `json:"version"`
	CalculatedBy        string       `json:"calculatedBy"`
	Errors              []EntryError `json:"errors,omitempty"`
}

// EmissionSummary is the roll-up of one client's processed records over a
// period. All quantities are tonnes CO2e. Grouping maps are keyed by
// escaped group keys.
type EmissionSummary struct {
	ID               string                    `json:"id"`
	ClientID         string                    `json:"clientId"`
	Period           Period                    `json:"period"`
	From             time.Time                 `json:"from"`
	To               time.Time                 `json:"to"`
	TotalEmissions   Totals                    `json:"totalEmissions"`
	ByScope          map[string]Totals         `json:"byScope"`
	ByCategory       map[string]CategoryTotals `json:"byCategory"`
	ByActivity       map[string]ActivityTotals `json:"byActivity"`
	ByNode           map[string]NodeTotals     `json:"byNode"`
	ByDepartment     map[string]AreaTotals     `json:"byDepartment"`
	ByLocation       map[string]AreaTotals     `json:"byLocation"`
	ByEmissionFactor map[string]FactorTotals   `json:"byEmissionFactor"`
	ByInputType      map[string]Totals         `json:"byInputType"`
	Metadata         SummaryMetadata           `json:"metadata"`
	Trends           *Trends                   `json:"trends,omitempty"`
}

// NewEmissionSummary returns a summary with every grouping allocated and
// the fixed scope and input type keys present.
func NewEmissionSummary(clientID string, p Period) *EmissionSummary {
	s := &EmissionSummary{
		ClientID:         clientID,
		Period:           p,
		ByScope:          make(map[string]Totals, 3),
		ByCategory:       make(map[string]CategoryTotals),
		ByActivity:       make(map[string]ActivityTotals),
		ByNode:           make(map[string]NodeTotals),
		ByDepartment:     make(map[string]AreaTotals),
		ByLocation:       make(map[string]AreaTotals),
		ByEmissionFactor: make(map[string]FactorTotals),
		ByInputType:      make(map[string]Totals, len(InputTypes)),
	}
	for _, st := range []emission.ScopeType{emission.Scope1, emission.Scope2, emission.Scope3} {
		s.ByScope[string(st)] = Totals{}
	}
	for _, it := range InputTypes {
		s.ByInputType[string(it)] = Totals{}
	}
	return s
}

// SummaryID is the store identifier of a client's summary for p.
func SummaryID(clientID string, p Period) string {
	return clientID + "|" + p.Key()
}
