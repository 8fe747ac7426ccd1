package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/jobs"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
	"github.com/rshade/carbonledger/internal/supervisor"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the summary refresh worker and the metrics endpoint",
		Long: `Runs until interrupted. With jobs.driver memory or nats it consumes summary
refresh jobs published by other carbonledger commands and recomputes the
affected summaries. With metrics.enabled it serves Prometheus metrics on
/metrics and a liveness probe on /healthz.

Both run under a supervisor that restarts them with backoff on failure.`,
		Example: `  CARBONLEDGER_JOBS_DRIVER=nats CARBONLEDGER_JOBS_URL=nats://localhost:4222 carbonledger serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				return runServe(cmd, a, metricsAddr)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (default metrics.address)")
	return cmd
}

func runServe(cmd *cobra.Command, a *app, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	services := 0

	switch driver := strings.ToLower(a.cfg.Jobs.Driver); driver {
	case notify.DriverMemory, notify.DriverNATS:
		if driver == notify.DriverNATS && a.cfg.Store.Driver == store.DriverBadger {
			logger.Warn().Msg("badger allows one process per store; use the sqlite store when other commands publish jobs")
		}
		t, err := notify.NewTransport(jobsTransportConfig(a.cfg), notify.NewWatermillLogger(logger))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, t.Close)

		wc := jobs.DefaultWorkerConfig()
		wc.TopicPrefix = a.cfg.Notify.TopicPrefix
		worker, err := jobs.NewWorker(t.Subscriber, a.aggregator, wc, logger)
		if err != nil {
			return err
		}
		tree.AddWorker(worker)
		services++
		logger.Info().Str("driver", driver).Str("topic", worker.Topic()).Msg("summary refresh worker enabled")
	default:
		logger.Info().Msg("jobs.driver is inline; summaries refresh in the writing command and no worker runs")
	}

	if a.cfg.Metrics.Enabled || metricsAddr != "" {
		addr := firstNonEmpty(metricsAddr, a.cfg.Metrics.Address)
		tree.AddAPI(supervisor.NewHTTPService("metrics", supervisor.NewMetricsServer(addr), 0))
		services++
		logger.Info().Str("address", addr).Msg("metrics endpoint enabled")
	}

	if services == 0 {
		return errors.New("nothing to serve: enable metrics or set jobs.driver to memory or nats")
	}

	cmd.PrintErrln("carbonledger serving, press Ctrl+C to stop")
	err := tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logger.Warn().Int("services", len(report)).Msg("services did not stop in time")
	}
	return err
}
