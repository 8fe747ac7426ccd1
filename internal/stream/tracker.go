package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
)

// Recalculator recomputes the emissions of a record after its cumulative
// values changed. Implementations update the record in place and must not
// persist it.
type Recalculator interface {
	RecalculateRecord(ctx context.Context, r *models.ActivityRecord) error
}

// RecordError describes a record whose recalculation failed.
type RecordError struct {
	RecordID string `json:"recordId"`
	Message  string `json:"message"`
}

// RebuildResult reports what a stream rebuild did.
type RebuildResult struct {
	Stream       models.StreamKey `json:"stream"`
	Records      int              `json:"records"`
	Changed      int              `json:"changed"`
	Recalculated int              `json:"recalculated"`
	Errors       []RecordError    `json:"errors,omitempty"`
	Duration     time.Duration    `json:"duration"`
}

// Tracker serializes rebuilds per stream and persists the result.
type Tracker struct {
	store  store.ActivityStore
	sink   notify.Sink
	recalc Recalculator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink sets the sink that receives stream.rebuilt events.
func WithSink(s notify.Sink) Option {
	return func(t *Tracker) { t.sink = s }
}

// WithRecalculator recalculates every record of a rebuilt stream.
func WithRecalculator(r Recalculator) Option {
	return func(t *Tracker) { t.recalc = r }
}

// NewTracker returns a tracker over s.
func NewTracker(s store.ActivityStore, opts ...Option) *Tracker {
	t := &Tracker{store: s, locks: map[string]*sync.Mutex{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// lock returns the mutex of one stream, creating it on first use.
func (t *Tracker) lock(key models.StreamKey) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key.String()
	m, ok := t.locks[k]
	if !ok {
		m = &sync.Mutex{}
		t.locks[k] = m
	}
	return m
}

// RebuildStream recomputes and persists the running state of every record
// in the stream. Concurrent calls for the same stream run one after the
// other; calls for different streams run in parallel.
func (t *Tracker) RebuildStream(ctx context.Context, key models.StreamKey) (*RebuildResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().
		Str("component", "stream").
		Str("operation", "rebuild").
		Str("stream", key.String()).
		Logger()

	m := t.lock(key)
	m.Lock()
	defer m.Unlock()

	start := time.Now()
	res, err := t.rebuild(ctx, key)
	records := 0
	if res != nil {
		res.Duration = time.Since(start)
		records = res.Records
	}
	metrics.RecordStreamRebuild(records, err)
	if err != nil {
		logger.Error().Err(err).Msg("stream rebuild failed")
		return nil, err
	}

	logger.Debug().
		Int("records", res.Records).
		Int("changed", res.Changed).
		Int("recalculated", res.Recalculated).
		Dur("duration", res.Duration).
		Msg("stream rebuilt")

	notify.Emit(ctx, t.sink, models.Event{
		Type:     models.EventStreamRebuilt,
		ClientID: key.ClientID,
		Data: map[string]any{
			"nodeId":          key.NodeID,
			"scopeIdentifier": key.ScopeIdentifier,
			"inputType":       string(key.InputType),
			"records":         res.Records,
			"changed":         res.Changed,
		},
	})
	return res, nil
}

func (t *Tracker) rebuild(ctx context.Context, key models.StreamKey) (*RebuildResult, error) {
	records, err := t.store.ListStream(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("listing stream %s: %w", key, err)
	}

	res := &RebuildResult{Stream: key, Records: len(records)}
	changed := Rebuild(records)
	res.Changed = len(changed)

	toSave := changed
	if t.recalc != nil {
		// Cumulative buckets read cumulative values, so every record is
		// recalculated and saved.
		toSave = records
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := t.recalc.RecalculateRecord(ctx, r); err != nil {
				res.Errors = append(res.Errors, RecordError{RecordID: r.ID, Message: err.Error()})
				continue
			}
			res.Recalculated++
		}
	}

	now := time.Now().UTC()
	for _, r := range toSave {
		r.UpdatedAt = now
		if err := t.store.PutActivity(ctx, r); err != nil {
			return nil, fmt.Errorf("saving record %s: %w", r.ID, err)
		}
	}
	return res, nil
}
