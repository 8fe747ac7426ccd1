package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/carbonledger/internal/config"
)

// NewConfigGetCmd creates the config get command.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one effective configuration value",
		Long: `Prints the effective value of a dotted key after the project overlay and
CARBONLEDGER_* environment overrides are applied. Sections print as YAML.`,
		Example: `  carbonledger config get store.driver
  carbonledger config get notify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.GetGlobalConfig().Get(args[0])
			if err != nil {
				return err
			}
			return printConfigValue(cmd, v)
		},
	}
}

func printConfigValue(cmd *cobra.Command, v any) error {
	switch v.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		cmd.Print(string(data))
	case nil:
		cmd.Println("")
	default:
		cmd.Println(fmt.Sprint(v))
	}
	return nil
}

// NewConfigListCmd creates the config list command.
func NewConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every effective configuration value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			if format == formatJSON {
				values := make(map[string]any)
				for _, key := range cfg.Keys() {
					v, _ := cfg.Get(key)
					values[key] = v
				}
				return writeJSON(cmd.OutOrStdout(), values)
			}
			for _, key := range cfg.Keys() {
				v, err := cfg.Get(key)
				if err != nil {
					continue
				}
				cmd.Printf("%s=%v\n", key, v)
			}
			return nil
		},
	}
}
