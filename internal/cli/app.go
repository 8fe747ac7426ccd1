package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/config"
	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/jobs"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
	"github.com/rshade/carbonledger/internal/summary"
)

// errClientRequired is returned by commands that operate on one client.
var errClientRequired = errors.New("a client ID is required: pass --client or set " + EnvClient)

// app holds the collaborators one command invocation works with.
type app struct {
	cfg        *config.Config
	store      store.Store
	sink       notify.CloseableSink
	aggregator *summary.Aggregator
	service    *engine.Service
	closers    []func() error
}

// openApp opens the configured store, sink and refresh scheduler and wires
// the engine service over them. The caller must Close the app.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: ExitConfiguration, Reason: fmt.Sprintf("invalid configuration: %v", err)}
	}

	if err := config.EnsureStoreDir(cfg); err != nil {
		return nil, fmt.Errorf("prepare store directory: %w", err)
	}
	st, err := store.Open(cfg.Store.Driver, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a := &app{cfg: cfg, store: st}
	a.closers = append(a.closers, st.Close)

	sink, err := notify.Open(notifyConfig(cfg), logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open %s notification sink: %w", cfg.Notify.Driver, err)
	}
	a.sink = sink
	a.closers = append(a.closers, sink.Close)

	a.aggregator = summary.NewAggregator(st, summary.WithSink(sink))

	scheduler, err := a.scheduler()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.service = engine.NewService(st, engine.Options{
		Sink:         sink,
		Scheduler:    scheduler,
		FlowchartTTL: cfg.Cache.FlowchartTTL,
		BatchSize:    cfg.Jobs.BatchSize,
		Concurrency:  cfg.Jobs.Concurrency,
	})

	logger.Debug().Ctx(cmd.Context()).
		Str("store", cfg.Store.Driver).
		Str("notify", cfg.Notify.Driver).
		Str("jobs", cfg.Jobs.Driver).
		Msg("application opened")
	return a, nil
}

// scheduler picks how summary refreshes run. A one-shot command has no
// in-process consumer, so the memory queue degrades to inline refreshes.
func (a *app) scheduler() (engine.RefreshScheduler, error) {
	switch strings.ToLower(a.cfg.Jobs.Driver) {
	case notify.DriverNATS:
		t, err := notify.NewTransport(jobsTransportConfig(a.cfg), notify.NewWatermillLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("connect job queue: %w", err)
		}
		a.closers = append(a.closers, t.Close)
		return jobs.NewQueue(t.Publisher, a.cfg.Notify.TopicPrefix), nil
	default:
		return jobs.Inline{Refresher: a.aggregator}, nil
	}
}

// Close releases everything openApp acquired, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func notifyConfig(cfg *config.Config) notify.Config {
	bc := notify.DefaultBreakerConfig()
	if cfg.Notify.Breaker.FailureThreshold > 0 {
		bc.FailureThreshold = cfg.Notify.Breaker.FailureThreshold
	}
	if cfg.Notify.Breaker.Timeout > 0 {
		bc.Timeout = cfg.Notify.Breaker.Timeout
	}
	return notify.Config{
		Driver:         cfg.Notify.Driver,
		URL:            cfg.Notify.URL,
		Brokers:        cfg.Notify.Brokers,
		TopicPrefix:    cfg.Notify.TopicPrefix,
		BreakerEnabled: cfg.Notify.Breaker.Enabled,
		Breaker:        bc,
	}
}

// jobsTransportConfig uses JetStream so queued refreshes survive until a
// worker acknowledges them.
func jobsTransportConfig(cfg *config.Config) notify.TransportConfig {
	return notify.TransportConfig{
		Driver:     cfg.Jobs.Driver,
		URL:        cfg.Jobs.URL,
		JetStream:  strings.EqualFold(cfg.Jobs.Driver, notify.DriverNATS),
		QueueGroup: "carbonledger-jobs",
	}
}

// clientID returns the --client value.
func clientID(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("client")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errClientRequired
	}
	return id, nil
}

// withApp opens the app, runs fn and closes the app, keeping fn's error.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if closeErr := a.Close(); closeErr != nil {
		logger.Warn().Err(closeErr).Msg("closing application")
	}
	return runErr
}
