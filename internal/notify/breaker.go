package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
)

// BreakerConfig configures the circuit breaker in front of a sink.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes
// again after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "notify",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerSink stops calling a failing sink until the breaker half-opens.
// While open, Publish returns gobreaker.ErrOpenState immediately.
type BreakerSink struct {
	next CloseableSink
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerSink wraps next.
func NewBreakerSink(next CloseableSink, cfg BreakerConfig, logger zerolog.Logger) *BreakerSink {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("component", "notify").
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &BreakerSink{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Publish implements Sink.
func (s *BreakerSink) Publish(ctx context.Context, e models.Event) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Publish(ctx, e)
	})
	return err
}

// State reports the breaker state.
func (s *BreakerSink) State() gobreaker.State {
	return s.cb.State()
}

// Close implements CloseableSink.
func (s *BreakerSink) Close() error {
	return s.next.Close()
}
