package notify

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Config selects the notification backend.
type Config struct {
	Driver         string
	URL            string
	Brokers        []string
	TopicPrefix    string
	BreakerEnabled bool
	Breaker        BreakerConfig
}

// Open builds the configured sink. memory and nats go through watermill,
// kafka through kafka-go; none (or empty) discards events. When the breaker
// is enabled the sink is wrapped in a BreakerSink.
func Open(cfg Config, logger zerolog.Logger) (CloseableSink, error) {
	var sink CloseableSink
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return Nop{}, nil
	case DriverMemory, DriverNATS:
		t, err := NewTransport(TransportConfig{Driver: cfg.Driver, URL: cfg.URL}, NewWatermillLogger(logger))
		if err != nil {
			return nil, err
		}
		ws := NewWatermillSink(t.Publisher, cfg.TopicPrefix)
		ws.owned = t
		sink = ws
	case DriverKafka:
		ks, err := NewKafkaSink(cfg.Brokers, cfg.TopicPrefix)
		if err != nil {
			return nil, err
		}
		sink = ks
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}

	if cfg.BreakerEnabled {
		bc := cfg.Breaker
		if bc.Name == "" {
			bc.Name = "notify-" + strings.ToLower(cfg.Driver)
		}
		sink = NewBreakerSink(sink, bc, logger)
	}
	return sink, nil
}
