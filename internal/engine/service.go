package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/carbonledger/internal/engine/batch"
	"github.com/rshade/carbonledger/internal/engine/cache"
	"github.com/rshade/carbonledger/internal/ingest"
	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
	"github.com/rshade/carbonledger/internal/stream"
	"github.com/rshade/carbonledger/internal/validation"
)

// RefreshScheduler queues the recalculation of every summary period that
// contains at. Implementations must be idempotent: the same refresh may be
// scheduled more than once.
type RefreshScheduler interface {
	ScheduleRefresh(ctx context.Context, clientID string, at time.Time) error
}

// Service orchestrates ingestion, edits, deletes and recalculation.
//
// Every write follows the same two phases: the record is persisted and its
// stream rebuilt synchronously, then a summary refresh is scheduled.
type Service struct {
	store      store.Store
	flowcharts store.FlowchartStore
	calc       *Calculator
	tracker    *stream.Tracker
	normalizer *ingest.Normalizer
	scheduler  RefreshScheduler
	sink       notify.Sink
	location   *time.Location
	batchSize  int
	workers    int
	now        func() time.Time
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Sink         notify.Sink
	Scheduler    RefreshScheduler
	FlowchartTTL time.Duration
	BatchSize    int
	Concurrency  int
	// Location interprets wall-clock dates that carry no zone. Default UTC.
	Location *time.Location
}

// NewService wires the calculator, stream tracker and flowchart cache over s.
func NewService(s store.Store, opts Options) *Service {
	flowcharts := cache.NewFlowchartCache(s, opts.FlowchartTTL)
	calc := NewCalculator(s, flowcharts, WithCalculatorSink(opts.Sink))
	svc := &Service{
		store:      s,
		flowcharts: flowcharts,
		calc:       calc,
		tracker:    stream.NewTracker(s, stream.WithSink(opts.Sink), stream.WithRecalculator(calc)),
		normalizer: ingest.NewNormalizer(),
		scheduler:  opts.Scheduler,
		sink:       opts.Sink,
		location:   opts.Location,
		batchSize:  opts.BatchSize,
		workers:    opts.Concurrency,
		now:        time.Now,
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.batchSize <= 0 {
		svc.batchSize = batch.DefaultBatchSize
	}
	return svc
}

// Calculator returns the service's calculator.
func (s *Service) Calculator() *Calculator { return s.calc }

// Tracker returns the service's stream tracker.
func (s *Service) Tracker() *stream.Tracker { return s.tracker }

// Flowcharts returns the cached flowchart store.
func (s *Service) Flowcharts() store.FlowchartStore { return s.flowcharts }

// IngestRequest is one raw activity submission.
type IngestRequest struct {
	ClientID        string            `json:"clientId" validate:"required"`
	NodeID          string            `json:"nodeId" validate:"required"`
	ScopeIdentifier string            `json:"scopeIdentifier" validate:"required"`
	InputType       string            `json:"inputType" validate:"required"`
	Source          string            `json:"source,omitempty"`
	Date            string            `json:"date" validate:"required"`
	Time            string            `json:"time"`
	Values          map[string]any    `json:"values" validate:"required"`
	Units           map[string]string `json:"units,omitempty"`
}

// IngestResult is the stored record after calculation.
type IngestResult struct {
	Record   *models.ActivityRecord `json:"record"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Ingest normalizes, stores and calculates one submission, rebuilds its
// stream and schedules the summary refresh.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	r, warnings, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutActivity(ctx, r); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}
	if err := s.settle(ctx, r.Stream(), r.Timestamp); err != nil {
		return nil, err
	}

	stored, err := s.store.GetActivity(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	s.emitProcessed(ctx, stored, "ingest")
	logging.FromContext(ctx).Info().
		Str("component", "engine").
		Str("operation", "ingest").
		Str("record_id", stored.ID).
		Str("stream", stored.Stream().String()).
		Str("status", string(stored.ProcessingStatus)).
		Msg("activity ingested")
	return &IngestResult{Record: stored, Warnings: warnings}, nil
}

// prepare validates and normalizes req into a pending record.
func (s *Service) prepare(ctx context.Context, req IngestRequest) (*models.ActivityRecord, []string, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, nil, err
	}
	inputType, ok := models.ParseInputType(req.InputType)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidInputType, req.InputType)
	}
	source := req.Source
	if source == "" && strings.EqualFold(req.InputType, "csv") {
		source = "csv"
	}

	scope, err := resolveScope(ctx, s.flowcharts, req.ClientID, req.NodeID, req.ScopeIdentifier)
	if err != nil {
		return nil, nil, err
	}
	if err := checkFactorConfigured(scope.Config); err != nil {
		return nil, nil, err
	}
	ts, err := ingest.ParseTimestamp(req.Date, req.Time, s.location)
	if err != nil {
		return nil, nil, err
	}

	norm := s.normalizer.Normalize(scope.Config, ingest.Payload{Values: req.Values, Units: req.Units})
	now := s.now().UTC()
	r := &models.ActivityRecord{
		ID:               ulid.Make().String(),
		ClientID:         req.ClientID,
		NodeID:           req.NodeID,
		ScopeIdentifier:  req.ScopeIdentifier,
		ScopeType:        scope.Config.ScopeType,
		InputType:        inputType,
		Source:           source,
		Date:             ingest.FormatDate(ts),
		Time:             ingest.FormatTime(ts),
		Timestamp:        ts,
		DataValues:       norm.Values,
		EmissionFactor:   scope.Config.EmissionFactor,
		ProcessingStatus: models.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return r, norm.Warnings, nil
}

// settle rebuilds a stream, which recalculates every record of it, then
// schedules the refresh of the periods containing the given instants.
func (s *Service) settle(ctx context.Context, key models.StreamKey, at ...time.Time) error {
	if _, err := s.tracker.RebuildStream(ctx, key); err != nil {
		return fmt.Errorf("rebuilding stream: %w", err)
	}
	s.scheduleRefresh(ctx, key.ClientID, at...)
	return nil
}

// scheduleRefresh queues one refresh per distinct day. Failures are logged:
// the record is already stored and the refresh can be rerun.
func (s *Service) scheduleRefresh(ctx context.Context, clientID string, at ...time.Time) {
	if s.scheduler == nil {
		return
	}
	seen := map[string]bool{}
	for _, t := range at {
		day := t.UTC().Format(time.DateOnly)
		if seen[day] {
			continue
		}
		seen[day] = true
		if err := s.scheduler.ScheduleRefresh(ctx, clientID, t); err != nil {
			logging.FromContext(ctx).Warn().
				Str("component", "engine").
				Str("client_id", clientID).
				Str("day", day).
				Err(err).
				Msg("scheduling summary refresh failed")
		}
	}
}

// EditRequest replaces the values and optionally the date and time of a
// stored record. Empty Date and Time keep the current timestamp.
type EditRequest struct {
	ClientID string            `json:"clientId" validate:"required"`
	Date     string            `json:"date,omitempty"`
	Time     string            `json:"time,omitempty"`
	Values   map[string]any    `json:"values" validate:"required"`
	Units    map[string]string `json:"units,omitempty"`
}

// EditActivity updates a record and rebuilds its stream.
func (s *Service) EditActivity(ctx context.Context, id string, req EditRequest) (*IngestResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	r, err := s.loadOwned(ctx, req.ClientID, id)
	if err != nil {
		return nil, err
	}
	scope, err := resolveScope(ctx, s.flowcharts, r.ClientID, r.NodeID, r.ScopeIdentifier)
	if err != nil {
		return nil, err
	}

	oldTS := r.Timestamp
	if req.Date != "" {
		ts, err := ingest.ParseTimestamp(req.Date, req.Time, s.location)
		if err != nil {
			return nil, err
		}
		r.Timestamp = ts
		r.Date, r.Time = ingest.FormatDate(ts), ingest.FormatTime(ts)
	}
	norm := s.normalizer.Normalize(scope.Config, ingest.Payload{Values: req.Values, Units: req.Units})
	r.DataValues = norm.Values
	r.ProcessingStatus = models.StatusPending
	r.UpdatedAt = s.now().UTC()

	if err := s.store.PutActivity(ctx, r); err != nil {
		return nil, fmt.Errorf("saving record: %w", err)
	}
	if err := s.settle(ctx, r.Stream(), oldTS, r.Timestamp); err != nil {
		return nil, err
	}
	stored, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emitProcessed(ctx, stored, "edit")
	return &IngestResult{Record: stored, Warnings: norm.Warnings}, nil
}

// emitProcessed announces a saved or edited record once its stream has
// been rebuilt.
func (s *Service) emitProcessed(ctx context.Context, r *models.ActivityRecord, operation string) {
	notify.Emit(ctx, s.sink, models.Event{
		Type:     models.EventActivityProcessed,
		ClientID: r.ClientID,
		Data: map[string]any{
			"recordId":        r.ID,
			"nodeId":          r.NodeID,
			"scopeIdentifier": r.ScopeIdentifier,
			"operation":       operation,
			"status":          string(r.ProcessingStatus),
		},
	})
}

// DeleteActivity removes a record and rebuilds the rest of its stream.
func (s *Service) DeleteActivity(ctx context.Context, clientID, id string) error {
	r, err := s.loadOwned(ctx, clientID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteActivity(ctx, id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if err := s.settle(ctx, r.Stream(), r.Timestamp); err != nil {
		return err
	}
	notify.Emit(ctx, s.sink, models.Event{
		Type:     models.EventActivityDeleted,
		ClientID: clientID,
		Data:     map[string]any{"recordId": id, "nodeId": r.NodeID, "scopeIdentifier": r.ScopeIdentifier},
	})
	return nil
}

func (s *Service) loadOwned(ctx context.Context, clientID, id string) (*models.ActivityRecord, error) {
	r, err := s.store.GetActivity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if r.ClientID != clientID {
		return nil, fmt.Errorf("%w: %s", ErrClientMismatch, id)
	}
	return r, nil
}

// RecalcRequest selects the records to recalculate. Zero fields do not
// filter.
type RecalcRequest struct {
	ClientID        string    `json:"clientId" validate:"required"`
	NodeID          string    `json:"nodeId,omitempty"`
	ScopeIdentifier string    `json:"scopeIdentifier,omitempty"`
	From            time.Time `json:"from,omitempty"`
	To              time.Time `json:"to,omitempty"`
}

// RecalculateBatch recalculates every record matched by req. Streams are
// the unit of work: each matched stream is rebuilt in full, since its
// cumulative values depend on records outside the filter. Streams run in
// fixed-size batches with full parallelism inside a batch. The report
// counts records.
func (s *Service) RecalculateBatch(ctx context.Context, req RecalcRequest) (*batch.Report, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	records, err := s.store.QueryActivities(ctx, store.ActivityQuery{
		ClientID:        req.ClientID,
		NodeID:          req.NodeID,
		ScopeIdentifier: req.ScopeIdentifier,
		From:            req.From,
		To:              req.To,
	})
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}

	keys, stamps := streamsOf(records)
	report, err := s.rebuildStreams(ctx, keys)
	if err != nil {
		return report, err
	}
	s.scheduleRefresh(ctx, req.ClientID, stamps...)
	metrics.RecordBatch(report.Saved, report.Failed)

	logging.FromContext(ctx).Info().
		Str("component", "engine").
		Str("operation", "recalculate").
		Str("client_id", req.ClientID).
		Int("streams", len(keys)).
		Int("saved", report.Saved).
		Int("failed", report.Failed).
		Msg("batch recalculation finished")
	return report, nil
}

// rebuildStreams rebuilds keys through the batch processor and folds the
// per-record outcomes into one report.
func (s *Service) rebuildStreams(ctx context.Context, keys []models.StreamKey) (*batch.Report, error) {
	proc, err := batch.NewProcessor[models.StreamKey](min(s.batchSize, batch.MaxBatchSize))
	if err != nil {
		return nil, err
	}
	proc.WithConcurrency(s.workers).WithIDFunc(func(k models.StreamKey) string { return k.String() })

	var mu sync.Mutex
	report := &batch.Report{}
	streamReport, err := proc.Run(ctx, keys, func(ctx context.Context, key models.StreamKey) error {
		res, err := s.tracker.RebuildStream(ctx, key)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		report.Total += res.Records
		report.Saved += res.Recalculated
		report.Failed += len(res.Errors)
		for _, e := range res.Errors {
			report.Errors = append(report.Errors, batch.ItemError{ID: e.RecordID, Message: e.Message})
		}
		return nil
	})
	if streamReport != nil {
		for _, e := range streamReport.Errors {
			report.Failed++
			report.Errors = append(report.Errors, e)
		}
	}
	return report, err
}

// streamsOf returns the distinct streams of records in a stable order and
// the timestamps touched.
func streamsOf(records []*models.ActivityRecord) ([]models.StreamKey, []time.Time) {
	seen := map[models.StreamKey]bool{}
	var keys []models.StreamKey
	stamps := make([]time.Time, 0, len(records))
	for _, r := range records {
		stamps = append(stamps, r.Timestamp)
		k := r.Stream()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, stamps
}

// BatchIngestResult reports a multi-row ingestion.
type BatchIngestResult struct {
	Report   *batch.Report `json:"report"`
	Warnings []string      `json:"warnings,omitempty"`
}

// IngestBatch stores many submissions. Rows are validated and stored in
// parallel batches; each affected stream is then rebuilt once and one
// refresh per touched day is scheduled. Row failures do not stop the
// others.
func (s *Service) IngestBatch(ctx context.Context, reqs []IngestRequest) (*BatchIngestResult, error) {
	proc, err := batch.NewProcessor[int](min(s.batchSize, batch.MaxBatchSize))
	if err != nil {
		return nil, err
	}
	proc.WithConcurrency(s.workers)

	var mu sync.Mutex
	var stored []*models.ActivityRecord
	var warnings []string
	indexes := make([]int, len(reqs))
	for i := range reqs {
		indexes[i] = i
	}
	rowReport, err := proc.Run(ctx, indexes, func(ctx context.Context, i int) error {
		r, w, err := s.prepare(ctx, reqs[i])
		if err != nil {
			return err
		}
		if err := s.store.PutActivity(ctx, r); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		stored = append(stored, r)
		for _, msg := range w {
			warnings = append(warnings, fmt.Sprintf("row %d: %s", i+1, msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys, _ := streamsOf(stored)
	if _, err := s.rebuildStreams(ctx, keys); err != nil {
		return nil, err
	}
	byClient := map[string][]time.Time{}
	for _, r := range stored {
		byClient[r.ClientID] = append(byClient[r.ClientID], r.Timestamp)
	}
	for clientID, stamps := range byClient {
		s.scheduleRefresh(ctx, clientID, stamps...)
	}
	for _, r := range stored {
		if fresh, err := s.store.GetActivity(ctx, r.ID); err == nil {
			r = fresh
		}
		s.emitProcessed(ctx, r, "batch")
	}
	sort.Strings(warnings)

	metrics.RecordBatch(rowReport.Saved, rowReport.Failed)
	return &BatchIngestResult{Report: rowReport, Warnings: warnings}, nil
}
