// Package notify delivers fire-and-forget change events. A Sink publishes
// one event; Emit wraps a Sink so that delivery failures are logged and
// counted but never returned to the calculation path.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
)

// Sink publishes events.
type Sink interface {
	Publish(ctx context.Context, e models.Event) error
}

// CloseableSink is a Sink that owns a connection.
type CloseableSink interface {
	Sink
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, models.Event) error { return nil }

// Close implements CloseableSink.
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, e models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Close implements CloseableSink.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Emit fills in the event ID and timestamp and publishes through s. A nil
// sink is allowed. Failures are logged at warn level and swallowed.
func Emit(ctx context.Context, s Sink, e models.Event) {
	if s == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	err := s.Publish(ctx, e)
	metrics.RecordNotification(e.Type, err)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "notify").
			Str("event_type", e.Type).
			Str("client_id", e.ClientID).
			Err(err).
			Msg("notification delivery failed")
	}
}
