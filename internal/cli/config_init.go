package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/config"
)

// NewConfigInitCmd creates the config init command. Inside a project (a
// directory holding .carbonledger/, or one named by --project-dir) it writes
// the project-local config.yaml and .gitignore; otherwise it writes the
// global $CARBONLEDGER_HOME/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

Inside a project, creates $PROJECT/.carbonledger/config.yaml together with a
.gitignore that keeps the local store out of version control. Use --global to
initialize the global configuration even inside a project.`,
		Example: `  # Create project-local configuration
  carbonledger config init --project-dir .

  # Create global configuration
  carbonledger config init --global

  # Overwrite an existing configuration
  carbonledger config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if projectDir := config.GetResolvedProjectDir(); projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}
			return initGlobalConfig(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "initialize the global configuration even inside a project")

	return cmd
}

func checkOverwrite(path string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return errors.New("configuration file already exists, use --force to overwrite")
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	return nil
}

// initProjectConfig creates projectDir/config.yaml and a .gitignore.
func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	configPath := filepath.Join(projectDir, "config.yaml")
	if err := checkOverwrite(configPath, force); err != nil {
		return err
	}

	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return fmt.Errorf("failed to create project config directory: %w", err)
	}

	cfg := config.Default()
	cfg.SetConfigPath(configPath)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep local data out of version control\n")
	}
	return nil
}

// initGlobalConfig creates $CARBONLEDGER_HOME/config.yaml.
func initGlobalConfig(cmd *cobra.Command, force bool) error {
	path := config.New().ConfigPath()
	if path == "" {
		return errors.New("cannot resolve the configuration directory; set CARBONLEDGER_HOME")
	}
	if err := checkOverwrite(path, force); err != nil {
		return err
	}

	cfg := config.Default()
	cfg.SetConfigPath(path)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized successfully\n")
	cmd.Printf("Configuration file: %s\n", path)
	return nil
}
