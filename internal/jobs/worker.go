package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/notify"
)

// WorkerConfig tunes the job router.
type WorkerConfig struct {
	TopicPrefix          string
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultWorkerConfig returns the settings used by the serve command.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     30 * time.Second,
	}
}

// Worker consumes summary refresh jobs and runs them against a Refresher.
type Worker struct {
	router    *message.Router
	refresher Refresher
	logger    zerolog.Logger
	topic     string
}

// NewWorker builds a router subscribed to the refresh topic on sub.
func NewWorker(sub message.Subscriber, refresher Refresher, cfg WorkerConfig, logger zerolog.Logger) (*Worker, error) {
	if sub == nil || refresher == nil {
		return nil, errors.New("jobs: subscriber and refresher are required")
	}
	defaults := DefaultWorkerConfig()
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaults.CloseTimeout
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = defaults.RetryMaxInterval
	}

	wmLogger := notify.NewWatermillLogger(logger.With().Str("component", "watermill").Logger())
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create job router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2,
		Logger:          wmLogger,
	}
	router.AddMiddleware(retry.Middleware)

	w := &Worker{
		router:    router,
		refresher: refresher,
		logger:    logger.With().Str("component", "jobs").Logger(),
		topic:     topicFor(cfg.TopicPrefix),
	}
	router.AddConsumerHandler("summary-refresh", w.topic, sub, w.handle)
	return w, nil
}

// handle processes one job. Malformed jobs are acked and dropped since
// retrying cannot fix them.
func (w *Worker) handle(msg *message.Message) error {
	job, err := DecodeRefresh(msg)
	if err != nil {
		w.logger.Error().Str("message_id", msg.UUID).Err(err).Msg("dropping malformed job")
		metrics.RecordJob(err)
		return nil
	}

	ctx := w.logger.WithContext(msg.Context())
	start := time.Now()
	err = w.refresher.RefreshContaining(ctx, job.ClientID, job.At, job.UserID)
	metrics.RecordJob(err)
	if err != nil {
		w.logger.Warn().
			Str("client_id", job.ClientID).
			Time("at", job.At).
			Err(err).
			Msg("summary refresh failed")
		return err
	}
	w.logger.Debug().
		Str("client_id", job.ClientID).
		Time("at", job.At).
		Dur("duration", time.Since(start)).
		Msg("summary refresh completed")
	return nil
}

// Topic returns the subscribed topic.
func (w *Worker) Topic() string { return w.topic }

// Running is closed once the router has started all handlers.
func (w *Worker) Running() chan struct{} { return w.router.Running() }

// Serve runs the router until ctx is cancelled. It satisfies
// suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	if err := w.router.Run(ctx); err != nil {
		return fmt.Errorf("job router: %w", err)
	}
	return ctx.Err()
}

// Close stops the router.
func (w *Worker) Close() error { return w.router.Close() }

func (w *Worker) String() string { return "summary-refresh-worker" }
