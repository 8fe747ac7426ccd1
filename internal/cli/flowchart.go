package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

// NewFlowchartCmd creates the flowchart command group.
func NewFlowchartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "flowchart", Short: "Manage the organization flowchart and scope configuration"}
	cmd.AddCommand(newFlowchartImportCmd(), newFlowchartShowCmd())
	return cmd
}

func newFlowchartImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a YAML flowchart and make it the client's active one",
		Long: `Reads a flowchart from a YAML file ("-" for stdin) and stores it as the
client's active flowchart. The client comes from the file's clientId or --client.

Scopes that cannot be calculated yet (unknown category, no emission factor)
are imported and listed as warnings.`,
		Example: `  carbonledger flowchart import flowchart.yaml --client acme`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFlowchart(cmd, args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				warnings, err := a.service.ImportFlowchart(cmd.Context(), f)
				if err != nil {
					return err
				}
				return renderImport(cmd, f, warnings)
			})
		},
	}
}

// readFlowchart decodes path and reconciles its client with --client.
func readFlowchart(cmd *cobra.Command, path string) (*models.Flowchart, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open flowchart: %w", err)
		}
		defer file.Close()
		r = file
	}

	var f models.Flowchart
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode flowchart %s: %w", path, err)
	}

	flagClient, _ := cmd.Flags().GetString("client")
	switch {
	case f.ClientID == "":
		f.ClientID = flagClient
	case flagClient != "" && flagClient != f.ClientID:
		return nil, fmt.Errorf("flowchart is for client %q but --client is %q", f.ClientID, flagClient)
	}
	return &f, nil
}

func renderImport(cmd *cobra.Command, f *models.Flowchart, warnings []engine.FlowchartWarning) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"flowchartId": f.ID,
			"clientId":    f.ClientID,
			"nodes":       len(f.Nodes),
			"warnings":    warnings,
		})
	}

	scopes := 0
	for _, n := range f.Nodes {
		scopes += len(n.ScopeDetails)
	}
	cmd.Printf("Imported flowchart %s for %s: %d nodes, %d scopes\n", f.ID, f.ClientID, len(f.Nodes), scopes)
	for _, w := range warnings {
		cmd.PrintErrf("Warning: %s/%s: %s\n", w.NodeID, w.ScopeIdentifier, w.Message)
	}
	return nil
}

func newFlowchartShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the client's active flowchart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				f, err := a.store.GetActiveFlowchart(cmd.Context(), client)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%w: %s", engine.ErrFlowchartNotFound, client)
				}
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), f)
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(f)
			})
		},
	}
}
