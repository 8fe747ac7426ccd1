package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
	"github.com/rshade/carbonledger/internal/validation"
)

// CalculateRequest names the record to calculate.
type CalculateRequest struct {
	ClientID         string `json:"clientId" validate:"required"`
	NodeID           string `json:"nodeId" validate:"required"`
	ScopeIdentifier  string `json:"scopeIdentifier" validate:"required"`
	ActivityRecordID string `json:"activityRecordId" validate:"required"`
}

// Calculator computes and stores the emissions of single activity records.
type Calculator struct {
	activities store.ActivityStore
	flowcharts store.FlowchartStore
	sink       notify.Sink
	now        func() time.Time
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithCalculatorSink sets the sink receiving activity.processed events.
func WithCalculatorSink(s notify.Sink) CalculatorOption {
	return func(c *Calculator) { c.sink = s }
}

// NewCalculator returns a calculator. flowcharts is typically a
// cache.FlowchartCache.
func NewCalculator(activities store.ActivityStore, flowcharts store.FlowchartStore, opts ...CalculatorOption) *Calculator {
	c := &Calculator{activities: activities, flowcharts: flowcharts, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalculateEmissions recalculates one record and stores the result on it.
// Re-running it overwrites the stored emissions. An unsupported category
// is not an error: the returned result carries Success=false or a message
// and the record is marked accordingly.
func (c *Calculator) CalculateEmissions(ctx context.Context, req CalculateRequest) (*emission.Result, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().
		Str("component", "engine").
		Str("operation", "calculate").
		Str("client_id", req.ClientID).
		Str("record_id", req.ActivityRecordID).
		Logger()

	r, err := c.activities.GetActivity(ctx, req.ActivityRecordID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, req.ActivityRecordID)
	}
	if err != nil {
		return nil, err
	}
	if r.ClientID != req.ClientID {
		return nil, fmt.Errorf("%w: %s", ErrClientMismatch, req.ActivityRecordID)
	}

	scope, err := resolveScope(ctx, c.flowcharts, req.ClientID, req.NodeID, req.ScopeIdentifier)
	if err != nil {
		logger.Warn().Err(err).Msg("scope configuration unavailable")
		return nil, err
	}
	if err := checkFactorConfigured(scope.Config); err != nil {
		return nil, err
	}

	res := c.apply(r, scope.Config)
	if err := c.activities.PutActivity(ctx, r); err != nil {
		return nil, fmt.Errorf("saving record %s: %w", r.ID, err)
	}

	logger.Debug().
		Str("scope", string(res.ScopeType)).
		Str("category", res.Category).
		Bool("success", res.Success).
		Msg("emissions calculated")

	notify.Emit(ctx, c.sink, models.Event{
		Type:     models.EventActivityProcessed,
		ClientID: r.ClientID,
		Data: map[string]any{
			"recordId":  r.ID,
			"nodeId":    r.NodeID,
			"scopeType": string(res.ScopeType),
			"success":   res.Success,
		},
	})
	return &res, nil
}

// RecalculateRecord recomputes r's emissions in place without saving it.
// It satisfies stream.Recalculator.
func (c *Calculator) RecalculateRecord(ctx context.Context, r *models.ActivityRecord) error {
	scope, err := resolveScope(ctx, c.flowcharts, r.ClientID, r.NodeID, r.ScopeIdentifier)
	if err != nil {
		c.markFailed(r, err)
		return err
	}
	if err := checkFactorConfigured(scope.Config); err != nil {
		c.markFailed(r, err)
		return err
	}
	res := c.apply(r, scope.Config)
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

// apply runs the calculators for r and writes the outcome onto it.
func (c *Calculator) apply(r *models.ActivityRecord, cfg emission.ScopeConfig) emission.Result {
	start := time.Now()
	res := emission.Calculate(emission.Input{
		Config:     cfg,
		Incoming:   r.DataValues,
		Cumulative: r.CumulativeValues,
	})
	metrics.RecordCalculation(string(cfg.ScopeType), time.Since(start), res.Success, nil)

	r.ScopeType = cfg.ScopeType
	r.EmissionFactor = cfg.EmissionFactor
	r.CalculatedEmissions = res.Emissions
	r.StatusMessage = res.Message
	r.UpdatedAt = c.now().UTC()
	if res.Success {
		r.ProcessingStatus = models.StatusProcessed
	} else {
		r.ProcessingStatus = models.StatusFailed
	}
	return res
}

func (c *Calculator) markFailed(r *models.ActivityRecord, err error) {
	r.ProcessingStatus = models.StatusFailed
	r.StatusMessage = err.Error()
	r.UpdatedAt = c.now().UTC()
}
