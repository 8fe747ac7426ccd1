package models

import "time"

// TargetType distinguishes near-term and net-zero SBTi targets.
type TargetType string

const (
	TargetNearTerm TargetType = "near_term"
	TargetNetZero  TargetType = "net_zero"
)

// TargetMethod is the reduction pathway method.
type TargetMethod string

const (
	MethodAbsolute TargetMethod = "absolute"
	MethodSDA      TargetMethod = "sda"
)

// ScopeEmissions is a per-scope emission total in tonnes CO2e.
type ScopeEmissions struct {
	Scope1 float64 `json:"scope1" yaml:"scope1"`
	Scope2 float64 `json:"scope2" yaml:"scope2"`
	Scope3 float64 `json:"scope3" yaml:"scope3"`
}

// Total returns the sum of all three scopes.
func (s ScopeEmissions) Total() float64 { return s.Scope1 + s.Scope2 + s.Scope3 }

// TrajectoryPoint is the target emission for one year.
type TrajectoryPoint struct {
	Year                       int     `json:"year"`
	TargetEmission             float64 `json:"targetEmission"`
	CumulativeReductionPercent float64 `json:"cumulativeReductionPercent"`
}

// CoverageCheck is the result of one SBTi boundary criterion.
type CoverageCheck struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Value    float64 `json:"value"`
	Required float64 `json:"required"`
	Message  string  `json:"message,omitempty"`
}

// SbtiTarget is a client's persisted reduction target.
type SbtiTarget struct {
	ClientID                string            `json:"clientId"`
	TargetType              TargetType        `json:"targetType"`
	Method                  TargetMethod      `json:"method"`
	BaseYear                int               `json:"baseYear"`
	TargetYear              int               `json:"targetYear"`
	BaseEmissions           ScopeEmissions    `json:"baseEmissions"`
	MinimumReductionPercent float64           `json:"minimumReductionPercent"`
	AnnualReductionPercent  float64           `json:"annualReductionPercent"`
	Trajectory              []TrajectoryPoint `json:"trajectory"`
	Checks                  []CoverageCheck   `json:"checks,omitempty"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}
