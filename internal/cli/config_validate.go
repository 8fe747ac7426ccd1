package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/config"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the effective configuration: the global config.yaml, the project
overlay and CARBONLEDGER_* environment overrides.

Checks field values (drivers, formats, ranges), required connection settings
for the nats and kafka drivers, and the flowchart cache TTL bounds.`,
		Example: `  # Validate current configuration
  carbonledger config validate

  # Validate and show detailed information
  carbonledger config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: ExitConfiguration, Reason: fmt.Sprintf("configuration validation failed: %v", err)}
	}

	if cfg.Jobs.Driver == notify.DriverNATS && cfg.Store.Driver == store.DriverBadger {
		cmd.Println("Warning: jobs.driver nats with a badger store; badger allows one process per store")
	}
	cmd.Printf("✅ Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	if cfg.ConfigPath() != "" {
		cmd.Printf("  Config file: %s\n", cfg.ConfigPath())
	}
	if dir := config.GetResolvedProjectDir(); dir != "" {
		cmd.Printf("  Project directory: %s\n", dir)
	}
	cmd.Printf("  Output format: %s\n", cfg.Output.DefaultFormat)
	cmd.Printf("  Output precision: %d\n", cfg.Output.Precision)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
	cmd.Printf("  Store: %s (%s)\n", cfg.Store.Driver, cfg.StorePath())
	cmd.Printf("  Notifications: %s\n", cfg.Notify.Driver)
	cmd.Printf("  Jobs: %s (batch size %d)\n", cfg.Jobs.Driver, cfg.Jobs.BatchSize)
	cmd.Printf("  Flowchart cache TTL: %s\n", cfg.Cache.FlowchartTTL)
	if cfg.Metrics.Enabled {
		cmd.Printf("  Metrics: %s\n", cfg.Metrics.Address)
	}
}
