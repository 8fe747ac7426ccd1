// Package sbti builds Science Based Targets initiative reduction
// trajectories and checks a target boundary against the SBTi coverage
// criteria.
package sbti

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/validation"
)

// Alignment is the temperature goal a near-term target is set against.
type Alignment string

const (
	Align15C  Alignment = "1.5C"
	AlignWB2C Alignment = "WB2C"
)

// ParseAlignment accepts "1.5", "1.5C", "wb2c", "well-below-2C" and similar.
func ParseAlignment(s string) (Alignment, bool) {
	norm := strings.NewReplacer(" ", "", "_", "", "-", "", "°", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "", "1.5", "1.5c":
		return Align15C, true
	case "wb2c", "wellbelow2c", "wb2", "2c":
		return AlignWB2C, true
	default:
		return "", false
	}
}

// Minimum ambition, in percent reduction over the target span.
const (
	MinNearTerm15C  = 42.0
	MinNearTermWB2C = 25.0
	MinNetZero      = 90.0
)

// Coverage criteria, in percent.
const (
	RequiredScope12Coverage = 95.0
	Scope3MaterialityShare  = 40.0
)

// Check names.
const (
	CheckScope12Coverage = "scope12_coverage"
	CheckScope3Target    = "scope3_target"
	CheckMinimumAmbition = "minimum_ambition"
)

// ErrInvalidRequest is wrapped by request validation failures.
var ErrInvalidRequest = errors.New("invalid trajectory request")

// TrajectoryRequest describes the target to build. Zero values select
// defaults: 1.5C alignment, absolute method, the minimum reduction of the
// alignment and target type, and full Scope 1+2 coverage.
type TrajectoryRequest struct {
	ClientID      string                `json:"clientId"`
	Alignment     Alignment             `json:"alignment"`
	TargetType    models.TargetType     `json:"targetType" validate:"omitempty,oneof=near_term net_zero"`
	Method        models.TargetMethod   `json:"method" validate:"omitempty,oneof=absolute sda"`
	BaseYear      int                   `json:"baseYear" validate:"required,gte=1990,lte=2100"`
	TargetYear    int                   `json:"targetYear" validate:"required,gtefield=BaseYear,lte=2100"`
	BaseEmissions models.ScopeEmissions `json:"baseEmissions"`

	// ReductionPercent overrides the default minimum reduction.
	ReductionPercent float64 `json:"reductionPercent" validate:"gte=0,lte=100"`

	// Scope12CoveragePercent is the share of Scope 1+2 emissions inside the
	// target boundary. Zero means 100.
	Scope12CoveragePercent float64 `json:"scope12CoveragePercent" validate:"gte=0,lte=100"`
	// IncludesScope3 reports whether a Scope 3 target accompanies this one.
	IncludesScope3 bool `json:"includesScope3"`

	// SDA inputs. Activity is in the sector's physical unit (tonnes of
	// product, square metres and so on).
	BaseActivity    float64 `json:"baseActivity" validate:"gte=0"`
	TargetIntensity float64 `json:"targetIntensity" validate:"gte=0"`
	ActivityTarget  float64 `json:"activityTarget" validate:"gte=0"`
}

// TrajectoryResult is the built trajectory with the derived fields of the
// method used.
type TrajectoryResult struct {
	ClientID                string                   `json:"clientId,omitempty"`
	Alignment               Alignment                `json:"alignment"`
	TargetType              models.TargetType        `json:"targetType"`
	Method                  models.TargetMethod      `json:"method"`
	BaseYear                int                      `json:"baseYear"`
	TargetYear              int                      `json:"targetYear"`
	BaseEmissions           models.ScopeEmissions    `json:"baseEmissions"`
	BaseEmission            float64                  `json:"baseEmission"`
	MinimumReductionPercent float64                  `json:"minimumReductionPercent"`
	AnnualReductionPercent  float64                  `json:"annualReductionPercent"`
	Trajectory              []models.TrajectoryPoint `json:"trajectory"`
	Checks                  []models.CoverageCheck   `json:"checks"`

	// SDA only.
	BaseIntensity             float64 `json:"baseIntensity,omitempty"`
	IntensityReductionPercent float64 `json:"intensityReductionPercent,omitempty"`
	AbsoluteTarget            float64 `json:"absoluteTarget,omitempty"`
	AbsoluteReductionPercent  float64 `json:"absoluteReductionPercent,omitempty"`
}

// MinimumReduction returns the default minimum reduction for a target.
func MinimumReduction(tt models.TargetType, a Alignment) float64 {
	if tt == models.TargetNetZero {
		return MinNetZero
	}
	if a == AlignWB2C {
		return MinNearTermWB2C
	}
	return MinNearTerm15C
}

// BuildTrajectory computes a year-by-year linear reduction pathway from
// BaseYear to TargetYear inclusive.
func BuildTrajectory(req TrajectoryRequest) (*TrajectoryResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if _, ok := ParseAlignment(string(req.Alignment)); !ok {
		return nil, fmt.Errorf("%w: unknown alignment %q", ErrInvalidRequest, req.Alignment)
	}
	req = withDefaults(req)

	res := &TrajectoryResult{
		ClientID:                req.ClientID,
		Alignment:               req.Alignment,
		TargetType:              req.TargetType,
		Method:                  req.Method,
		BaseYear:                req.BaseYear,
		TargetYear:              req.TargetYear,
		BaseEmissions:           req.BaseEmissions,
		BaseEmission:            req.BaseEmissions.Total(),
		MinimumReductionPercent: req.ReductionPercent,
	}
	span := float64(max(req.TargetYear-req.BaseYear, 1))

	switch req.Method {
	case models.MethodSDA:
		applySDA(res, req)
		res.AnnualReductionPercent = res.AbsoluteReductionPercent / span
	default:
		res.AnnualReductionPercent = req.ReductionPercent / span
	}

	res.Trajectory = trajectory(res.BaseEmission, req.BaseYear, req.TargetYear, res.AnnualReductionPercent)
	res.Checks = coverageChecks(req, res)
	return res, nil
}

func withDefaults(req TrajectoryRequest) TrajectoryRequest {
	req.Alignment, _ = ParseAlignment(string(req.Alignment))
	if req.TargetType == "" {
		req.TargetType = models.TargetNearTerm
	}
	if req.Method == "" {
		req.Method = models.MethodAbsolute
	}
	if req.ReductionPercent == 0 {
		req.ReductionPercent = MinimumReduction(req.TargetType, req.Alignment)
	}
	if req.Scope12CoveragePercent == 0 {
		req.Scope12CoveragePercent = 100
	}
	return req
}

// applySDA fills the intensity-derived fields. Non-positive bases leave the
// corresponding ratio at zero.
func applySDA(res *TrajectoryResult, req TrajectoryRequest) {
	base := res.BaseEmission
	if base > 0 && req.BaseActivity > 0 {
		res.BaseIntensity = base / req.BaseActivity
	}
	if res.BaseIntensity > 0 {
		res.IntensityReductionPercent = (1 - req.TargetIntensity/res.BaseIntensity) * 100
	}
	res.AbsoluteTarget = req.TargetIntensity * req.ActivityTarget
	if base > 0 {
		res.AbsoluteReductionPercent = (1 - res.AbsoluteTarget/base) * 100
	}
}

func trajectory(base float64, baseYear, targetYear int, annual float64) []models.TrajectoryPoint {
	points := make([]models.TrajectoryPoint, 0, targetYear-baseYear+1)
	for y := baseYear; y <= targetYear; y++ {
		cum := clamp(annual*float64(y-baseYear), 0, 100)
		points = append(points, models.TrajectoryPoint{
			Year:                       y,
			TargetEmission:             math.Max(0, base*(1-cum/100)),
			CumulativeReductionPercent: cum,
		})
	}
	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func coverageChecks(req TrajectoryRequest, res *TrajectoryResult) []models.CoverageCheck {
	s12 := models.CoverageCheck{
		Name:     CheckScope12Coverage,
		Passed:   req.Scope12CoveragePercent >= RequiredScope12Coverage,
		Value:    req.Scope12CoveragePercent,
		Required: RequiredScope12Coverage,
	}
	if !s12.Passed {
		s12.Message = fmt.Sprintf("boundary covers %.1f%% of Scope 1+2; at least %.0f%% required",
			req.Scope12CoveragePercent, RequiredScope12Coverage)
	}

	var share float64
	if total := res.BaseEmission; total > 0 {
		share = req.BaseEmissions.Scope3 / total * 100
	}
	s3 := models.CoverageCheck{
		Name:     CheckScope3Target,
		Passed:   share < Scope3MaterialityShare || req.IncludesScope3,
		Value:    share,
		Required: Scope3MaterialityShare,
	}
	if !s3.Passed {
		s3.Message = fmt.Sprintf("Scope 3 is %.1f%% of base emissions; a Scope 3 target is required", share)
	}

	minimum := MinimumReduction(req.TargetType, req.Alignment)
	achieved := req.ReductionPercent
	if req.Method == models.MethodSDA {
		achieved = res.AbsoluteReductionPercent
	}
	amb := models.CoverageCheck{
		Name:     CheckMinimumAmbition,
		Passed:   achieved >= minimum,
		Value:    achieved,
		Required: minimum,
	}
	if !amb.Passed {
		amb.Message = fmt.Sprintf("reduction of %.1f%% is below the %.0f%% minimum for %s", achieved, minimum, req.Alignment)
	}
	return []models.CoverageCheck{s12, s3, amb}
}

// Target converts the result into the persisted form.
func (r *TrajectoryResult) Target(now time.Time) *models.SbtiTarget {
	return &models.SbtiTarget{
		ClientID:                r.ClientID,
		TargetType:              r.TargetType,
		Method:                  r.Method,
		BaseYear:                r.BaseYear,
		TargetYear:              r.TargetYear,
		BaseEmissions:           r.BaseEmissions,
		MinimumReductionPercent: r.MinimumReductionPercent,
		AnnualReductionPercent:  r.AnnualReductionPercent,
		Trajectory:              r.Trajectory,
		Checks:                  r.Checks,
		UpdatedAt:               now.UTC(),
	}
}

// Passed reports whether every check passed.
func (r *TrajectoryResult) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// PointFor returns the trajectory point of year.
func (r *TrajectoryResult) PointFor(year int) (models.TrajectoryPoint, bool) {
	for _, p := range r.Trajectory {
		if p.Year == year {
			return p, true
		}
	}
	return models.TrajectoryPoint{}, false
}
