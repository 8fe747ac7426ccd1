package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/carbonledger/internal/config"
	"github.com/rshade/carbonledger/internal/logging"
)

// EnvClient supplies --client when the flag is not given.
const EnvClient = "CARBONLEDGER_CLIENT"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the carbonledger CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for
// testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "carbonledger",
		Short:         "Greenhouse-gas accounting ledger",
		Long:          "carbonledger: ingest activity data, calculate Scope 1/2/3 emissions, summarize them and plan SBTi targets",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			projectFlag, _ := cmd.Flags().GetString("project-dir")
			wd, _ := os.Getwd()
			projectDir := config.ResolveProjectDir(cmd.Context(), projectFlag, wd)
			config.SetResolvedProjectDir(projectDir)
			config.SetGlobalConfig(config.NewWithProjectDir(cmd.Context(), projectDir))

			if !cmd.Flags().Changed("client") {
				if v, ok := lookupEnv(EnvClient); ok {
					_ = cmd.Flags().Set("client", v)
				}
			}

			logResult = setupLogging(cmd, lookupEnv)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("project-dir", "", "project .carbonledger directory (default: discovered from the working directory)")
	cmd.PersistentFlags().String("client", "", "client ID (default $"+EnvClient+")")
	cmd.PersistentFlags().StringP("output", "o", "", "output format: table or json (default from config)")

	cmd.AddCommand(
		NewFlowchartCmd(), NewIngestCmd(), NewActivityCmd(), NewCalculateCmd(),
		NewRebuildCmd(), NewRecalcCmd(), NewSummaryCmd(), NewTrajectoryCmd(),
		NewTargetCmd(), NewServeCmd(), NewSetupCmd(), newConfigCmd(),
	)
	return cmd
}

const rootCmdExample = `  # Initialize project configuration
  carbonledger config init

  # Import the organization flowchart
  carbonledger flowchart import flowchart.yaml

  # Ingest one electricity reading
  carbonledger ingest --client acme --node plant-1 --scope grid --date 01/03/2025 --value kwh=1200

  # Ingest a CSV file
  carbonledger ingest csv readings.csv --client acme

  # Show the March summary
  carbonledger summary --client acme --period monthly --year 2025 --month 3

  # Build a 1.5C trajectory from the 2024 summary and save it
  carbonledger target set --client acme --base-year 2024 --target-year 2030 --from-summary`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigGetCmd(), NewConfigListCmd(), NewConfigValidateCmd())
	return cmd
}
