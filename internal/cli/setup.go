package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/config"
	"github.com/rshade/carbonledger/internal/logging"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
	"github.com/rshade/carbonledger/pkg/version"
)

// StepStatus represents the outcome of a single setup step.
type StepStatus int

const (
	// StepSuccess indicates the step completed successfully.
	StepSuccess StepStatus = iota
	// StepWarning indicates the step completed with a non-fatal issue.
	StepWarning
	// StepSkipped indicates the step was intentionally skipped via flag.
	StepSkipped
	// StepError indicates the step failed.
	StepError
)

// StepResult describes the outcome of executing a single setup step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Message  string
	Critical bool
	Err      error
}

// SetupOptions holds the configuration for the setup command, derived from CLI flags.
type SetupOptions struct {
	SkipStoreCheck bool
	NonInteractive bool
}

// SetupResult is the aggregate outcome of all setup steps.
type SetupResult struct {
	Steps       []StepResult
	HasErrors   bool
	HasWarnings bool
}

const dirPermBase = 0o700

// formatStatus returns a status marker appropriate for the output mode.
func formatStatus(status StepStatus, nonInteractive bool) string {
	if nonInteractive {
		switch status {
		case StepSuccess:
			return "[OK]"
		case StepWarning:
			return "[WARN]"
		case StepSkipped:
			return "[SKIP]"
		case StepError:
			return "[ERR]"
		default:
			return "[??]"
		}
	}

	switch status {
	case StepSuccess:
		return "\u2713" // ✓
	case StepWarning:
		return "!"
	case StepSkipped:
		return "-"
	case StepError:
		return "\u2717" // ✗
	default:
		return "?"
	}
}

// NewSetupCmd creates the setup command that bootstraps the carbonledger home.
func NewSetupCmd() *cobra.Command {
	var opts SetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the carbonledger environment",
		Long: `Creates the configuration directory, writes a default config.yaml when
none exists and checks that the configured store opens.

Setup is idempotent. Existing configuration files are never modified.`,
		Example: `  # Full setup
  carbonledger setup

  # CI setup (no TTY-dependent output)
  carbonledger setup --non-interactive

  # Directories and config only
  carbonledger setup --skip-store-check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false,
		"Disable TTY-dependent output (status symbols, color)")
	cmd.Flags().BoolVar(&opts.SkipStoreCheck, "skip-store-check", false,
		"Skip opening the configured store")

	return cmd
}

// runSetup runs every step even after a failure and fails only when a
// critical step failed.
func runSetup(cmd *cobra.Command, opts *SetupOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.FromContext(ctx)

	if !opts.NonInteractive && !isTerminal(os.Stdin) {
		opts.NonInteractive = true
	}

	result := &SetupResult{}
	record := func(steps ...StepResult) {
		for _, s := range steps {
			printStep(cmd, s, opts.NonInteractive)
			result.Steps = append(result.Steps, s)
		}
	}

	record(stepDisplayVersion())
	record(stepCreateDirectories()...)
	record(stepInitConfig())
	if opts.SkipStoreCheck {
		record(StepResult{Name: "Store check", Status: StepSkipped, Message: "Skipped store check"})
	} else {
		record(stepCheckStore())
	}
	record(stepCheckTransports())

	for _, s := range result.Steps {
		if s.Status == StepError && s.Critical {
			result.HasErrors = true
		}
		if s.Status == StepWarning {
			result.HasWarnings = true
		}
	}

	printSummary(cmd, result)

	if result.HasErrors {
		log.Error().Ctx(ctx).Str("component", "setup").Msg("setup completed with critical errors")
		return errors.New("setup failed: one or more critical steps failed")
	}
	return nil
}

func printStep(cmd *cobra.Command, step StepResult, nonInteractive bool) {
	cmd.Printf("%s %s\n", formatStatus(step.Status, nonInteractive), step.Message)
}

func printSummary(cmd *cobra.Command, result *SetupResult) {
	cmd.Println()
	if result.HasErrors {
		cmd.Println("Setup completed with errors. Review the messages above for remediation steps.")
		return
	}
	cmd.Println("Setup complete! Run 'carbonledger flowchart import flowchart.yaml --client <id>' to get started.")
}

func stepDisplayVersion() StepResult {
	return StepResult{
		Name:    "Version display",
		Status:  StepSuccess,
		Message: fmt.Sprintf("carbonledger %s (%s)", version.GetVersion(), runtime.Version()),
	}
}

// stepCreateDirectories creates the configuration directory and the
// directory the configured store lives in.
func stepCreateDirectories() []StepResult {
	baseDir, err := config.GetConfigDir()
	if err != nil {
		return []StepResult{{
			Name: "Directory creation", Status: StepError, Critical: true, Err: err,
			Message: fmt.Sprintf("Cannot resolve the configuration directory: %v", err),
		}}
	}

	cfg := config.GetGlobalConfig()
	dirs := []string{baseDir}
	if p := cfg.StorePath(); p != "" && p != ":memory:" && cfg.Store.Driver != store.DriverMemory {
		if cfg.Store.Driver == store.DriverSQLite {
			p = filepath.Dir(p)
		}
		if p != baseDir {
			dirs = append(dirs, p)
		}
	}

	var results []StepResult
	for _, dir := range dirs {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			results = append(results, StepResult{
				Name: "Directory creation", Status: StepSuccess, Critical: true,
				Message: fmt.Sprintf("Directory exists: %s", dir),
			})
			continue
		}
		if mkErr := os.MkdirAll(dir, dirPermBase); mkErr != nil {
			results = append(results, StepResult{
				Name: "Directory creation", Status: StepError, Critical: true, Err: mkErr,
				Message: fmt.Sprintf(
					"Failed to create %s: %v\n  Try: export CARBONLEDGER_HOME=/path/to/writable/directory", dir, mkErr),
			})
			continue
		}
		results = append(results, StepResult{
			Name: "Directory creation", Status: StepSuccess, Critical: true,
			Message: fmt.Sprintf("Created %s", dir),
		})
	}
	return results
}

// stepInitConfig writes the default config file if one does not exist.
func stepInitConfig() StepResult {
	cfg := config.New()
	configPath := cfg.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return StepResult{
			Name: "Config initialization", Status: StepSuccess, Critical: true,
			Message: fmt.Sprintf("Config already exists (%s)", configPath),
		}
	}

	defaults := config.Default()
	defaults.SetConfigPath(configPath)
	if err := defaults.Save(); err != nil {
		return StepResult{
			Name: "Config initialization", Status: StepError, Critical: true, Err: err,
			Message: fmt.Sprintf("Failed to initialize config: %v", err),
		}
	}
	return StepResult{
		Name: "Config initialization", Status: StepSuccess, Critical: true,
		Message: fmt.Sprintf("Initialized config (%s)", configPath),
	}
}

// stepCheckStore opens and closes the configured store.
func stepCheckStore() StepResult {
	cfg := config.GetGlobalConfig()
	if err := config.EnsureStoreDir(cfg); err != nil {
		return StepResult{Name: "Store check", Status: StepError, Critical: true, Err: err, Message: err.Error()}
	}
	st, err := store.Open(cfg.Store.Driver, cfg.StorePath())
	if err != nil {
		return StepResult{
			Name: "Store check", Status: StepError, Critical: true, Err: err,
			Message: fmt.Sprintf("Failed to open %s store at %s: %v", cfg.Store.Driver, cfg.StorePath(), err),
		}
	}
	if err := st.Close(); err != nil {
		return StepResult{
			Name: "Store check", Status: StepWarning, Err: err,
			Message: fmt.Sprintf("Store opened but did not close cleanly: %v", err),
		}
	}
	where, status := cfg.StorePath(), StepSuccess
	if cfg.Store.Driver == store.DriverMemory {
		where, status = "in-process, data is not persisted", StepWarning
	}
	return StepResult{
		Name: "Store check", Status: status,
		Message: fmt.Sprintf("Store %s ready (%s)", cfg.Store.Driver, where),
	}
}

// stepCheckTransports flags configurations that cannot work across
// processes.
func stepCheckTransports() StepResult {
	cfg := config.GetGlobalConfig()
	if cfg.Jobs.Driver == notify.DriverNATS && cfg.Store.Driver == store.DriverBadger {
		return StepResult{
			Name: "Transport check", Status: StepWarning,
			Message: "jobs.driver nats needs a store shared between processes; set store.driver sqlite",
		}
	}
	return StepResult{
		Name: "Transport check", Status: StepSuccess,
		Message: fmt.Sprintf("Notifications: %s, jobs: %s", cfg.Notify.Driver, cfg.Jobs.Driver),
	}
}
