// Package summary rolls processed activity records up into period
// summaries grouped by scope, category, activity, node, department,
// location, emission factor and input type, with trends against the
// previous period.
package summary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
)

// kgPerTonne converts record values (kilograms) to summary values.
const kgPerTonne = 1000.0

// DefaultCalculatedBy is recorded when no user triggered the calculation.
const DefaultCalculatedBy = "system"

// Store is what the aggregator reads and writes.
type Store interface {
	store.ActivityStore
	store.FlowchartStore
	store.SummaryStore
}

// Aggregator computes and persists emission summaries.
type Aggregator struct {
	store Store
	sink  notify.Sink
	now   func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSink sets the sink receiving summary.created and summary.updated.
func WithSink(s notify.Sink) Option {
	return func(a *Aggregator) { a.sink = s }
}

// WithClock overrides the clock used for all-time bounds and metadata.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator returns an aggregator over s.
func NewAggregator(s Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: s, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CalculateEmissionSummary recomputes the summary of clientID for p, stores
// it and returns it. It returns nil, nil when the client has no active
// flowchart yet. Records that cannot be aggregated are listed in
// Metadata.Errors and skipped.
func (a *Aggregator) CalculateEmissionSummary(
	ctx context.Context,
	clientID string,
	p models.Period,
	userID string,
) (*models.EmissionSummary, error) {
	logger := logging.FromContext(ctx).With().
		Str("component", "summary").
		Str("operation", "calculate").
		Str("client_id", clientID).
		Str("period", p.Key()).
		Logger()

	start := time.Now()
	s, err := a.calculate(ctx, logger, clientID, p, userID)
	entryErrors := 0
	if s != nil {
		entryErrors = len(s.Metadata.Errors)
	}
	metrics.RecordSummary(string(p.Type), time.Since(start), entryErrors, err)
	if err != nil {
		logger.Error().Err(err).Msg("summary calculation failed")
		return nil, err
	}
	if s == nil {
		logger.Debug().Msg("no active flowchart; summary skipped")
		return nil, nil //nolint:nilnil // nil,nil is intentional: client not configured yet.
	}

	created, err := a.store.UpsertSummary(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("saving summary %s: %w", p.Key(), err)
	}

	eventType := models.EventSummaryUpdated
	if created {
		eventType = models.EventSummaryCreated
	}
	notify.Emit(ctx, a.sink, models.Event{
		Type:     eventType,
		ClientID: clientID,
		Data: map[string]any{
			"summaryId":      s.ID,
			"period":         p.Key(),
			"version":        s.Metadata.Version,
			"totalEmissions": s.TotalEmissions.CO2e,
		},
	})

	logger.Info().
		Int("records", s.Metadata.TotalDataPoints).
		Int("included", s.Metadata.DataEntriesIncluded).
		Int("errors", entryErrors).
		Int("version", s.Metadata.Version).
		Float64("total_tco2e", s.TotalEmissions.CO2e).
		Msg("summary calculated")
	return s, nil
}

// RefreshContaining recalculates every period summary that contains at.
// Every period is attempted; the errors are joined.
func (a *Aggregator) RefreshContaining(ctx context.Context, clientID string, at time.Time, userID string) error {
	var errs []error
	for _, p := range models.PeriodsContaining(at) {
		if _, err := a.CalculateEmissionSummary(ctx, clientID, p, userID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Key(), err))
		}
	}
	return errors.Join(errs...)
}

func (a *Aggregator) calculate(
	ctx context.Context,
	logger zerolog.Logger,
	clientID string,
	p models.Period,
	userID string,
) (*models.EmissionSummary, error) {
	now := a.now().UTC()
	from, to, err := p.Bounds(now)
	if err != nil {
		return nil, err
	}

	chart, err := a.store.GetActiveFlowchart(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil //nolint:nilnil // nil,nil is intentional: client not configured yet.
	}
	if err != nil {
		return nil, fmt.Errorf("loading flowchart: %w", err)
	}
	chart.NormalizeScopes()

	records, err := a.store.QueryActivities(ctx, store.ActivityQuery{
		ClientID: clientID,
		Status:   models.StatusProcessed,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}

	s := models.NewEmissionSummary(clientID, p)
	s.From, s.To = from, to
	acc := newAccumulator(s)
	for _, r := range records {
		if err := acc.add(r, chart); err != nil {
			s.Metadata.Errors = append(s.Metadata.Errors, models.EntryError{RecordID: r.ID, Message: err.Error()})
		}
	}
	acc.finish()
	for _, id := range acc.unscoped {
		logger.Warn().Str("record_id", id).Msg("record has unrecognized scope type; counted in total only")
	}

	if userID == "" {
		userID = DefaultCalculatedBy
	}
	s.Metadata.TotalDataPoints = len(records)
	s.Metadata.DataEntriesIncluded = len(records) - len(s.Metadata.Errors)
	s.Metadata.LastCalculated = now
	s.Metadata.CalculatedBy = userID

	if prevPeriod, ok := p.Previous(); ok {
		prev, err := a.store.GetSummary(ctx, clientID, prevPeriod)
		switch {
		case err == nil:
			s.Trends = BuildTrends(s, prev)
		case errors.Is(err, store.ErrNotFound):
		default:
			return nil, fmt.Errorf("loading previous summary: %w", err)
		}
	}
	return s, nil
}

// RecordTotal extracts the emissions of r in tonnes. The cumulative bucket
// is preferred; the incoming bucket is used when cumulative is empty or
// sums to zero.
func RecordTotal(r *models.ActivityRecord) (emission.GasValues, error) {
	total := r.CalculatedEmissions.Cumulative.Total()
	if len(r.CalculatedEmissions.Cumulative) == 0 || total.CO2e == 0 {
		total = r.CalculatedEmissions.Incoming.Total()
	}
	for _, v := range []float64{total.CO2e, total.CO2, total.CH4, total.N2O, total.CombinedUncertainty} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return emission.GasValues{}, errors.New("calculated emissions are not finite")
		}
	}
	return total.Scale(1 / kgPerTonne), nil
}
