package cli

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

// NewCalculateCmd creates the calculate command.
func NewCalculateCmd() *cobra.Command {
	var nodeID, scopeID string

	cmd := &cobra.Command{
		Use:   "calculate RECORD_ID",
		Short: "Recalculate the emissions of one stored record",
		Long: `Runs the scope calculator for one record against the client's active
flowchart and stores the result on the record, replacing the previous one.
The node and scope default to the record's own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				req := engine.CalculateRequest{
					ClientID:         client,
					NodeID:           nodeID,
					ScopeIdentifier:  scopeID,
					ActivityRecordID: args[0],
				}
				if req.NodeID == "" || req.ScopeIdentifier == "" {
					r, err := a.store.GetActivity(cmd.Context(), args[0])
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("%w: %s", engine.ErrActivityNotFound, args[0])
					}
					if err != nil {
						return err
					}
					req.NodeID = firstNonEmpty(req.NodeID, r.NodeID)
					req.ScopeIdentifier = firstNonEmpty(req.ScopeIdentifier, r.ScopeIdentifier)
				}

				res, err := a.service.Calculator().CalculateEmissions(cmd.Context(), req)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				return renderResult(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "calculate against this node instead of the record's")
	cmd.Flags().StringVar(&scopeID, "scope", "", "calculate against this scope instead of the record's")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func renderResult(cmd *cobra.Command, res *emission.Result) error {
	status := "ok"
	if !res.Success {
		status = "unsupported"
	}
	cmd.Printf("%s / %s / %s: %s\n", res.ScopeType, res.Category, res.Tier, status)
	if res.Message != "" {
		cmd.Printf("%s\n", res.Message)
	}
	if res.Emissions.IsEmpty() {
		return nil
	}

	precision := outputPrecision()
	keys := make([]string, 0, len(res.Emissions.Incoming))
	for k := range res.Emissions.Incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "\nKey\tCO2\tCH4\tN2O\tCO2e\t±\tCumulative CO2e")
	for _, k := range keys {
		g := res.Emissions.Incoming[k]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", k,
			greenops.FormatFloat(g.CO2, precision), greenops.FormatFloat(g.CH4, precision),
			greenops.FormatFloat(g.N2O, precision), greenops.FormatFloat(g.CO2e, precision),
			greenops.FormatFloat(g.CombinedUncertainty, precision),
			greenops.FormatFloat(res.Emissions.Cumulative[k].CO2e, precision))
	}
	return w.Flush()
}

// NewRebuildCmd creates the rebuild command.
func NewRebuildCmd() *cobra.Command {
	var nodeID, scopeID, inputType string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the cumulative values of one data stream",
		Long: `Recomputes the running totals, high and low values and emissions of every
record in one stream (client, node, scope identifier, input type) in
timestamp order.`,
		Example: `  carbonledger rebuild --client acme --node plant-1 --scope grid --input-type manual`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			it, ok := models.ParseInputType(inputType)
			if !ok {
				return fmt.Errorf("%w: %q", engine.ErrInvalidInputType, inputType)
			}
			key := models.StreamKey{ClientID: client, NodeID: nodeID, ScopeIdentifier: scopeID, InputType: it}
			if err := key.Validate(); err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.service.Tracker().RebuildStream(cmd.Context(), key)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				cmd.Printf("Rebuilt %s: %d records, %d changed, %d recalculated in %s\n",
					res.Stream, res.Records, res.Changed, res.Recalculated, res.Duration.Round(time.Millisecond))
				for _, e := range res.Errors {
					cmd.PrintErrf("  %s: %s\n", e.RecordID, e.Message)
				}
				return batchExit(res.Records-len(res.Errors), len(res.Errors))
			})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "flowchart node ID")
	cmd.Flags().StringVar(&scopeID, "scope", "", "scope identifier within the node")
	cmd.Flags().StringVar(&inputType, "input-type", "manual", "input type: manual, API or IOT")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}

// NewRecalcCmd creates the recalc command.
func NewRecalcCmd() *cobra.Command {
	var (
		nodeID, scopeID string
		dr              dateRange
	)

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate historical records after a flowchart change",
		Long: `Recalculates every record of the client that matches the filters. Each
affected stream is rebuilt in full, in fixed-size parallel batches
(jobs.batch_size, jobs.concurrency), and the summaries of the touched days
are refreshed. Failures are reported per record; when some fail the command
exits with status 3.`,
		Example: `  carbonledger recalc --client acme --from 2025-01-01 --to 2025-12-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			from, to, err := dr.bounds()
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			req := engine.RecalcRequest{ClientID: client, NodeID: nodeID, ScopeIdentifier: scopeID, From: from, To: to}
			return withApp(cmd, func(a *app) error {
				rep, err := a.service.RecalculateBatch(cmd.Context(), req)
				if err != nil {
					return err
				}
				if format == formatJSON {
					if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
						return err
					}
				} else {
					for _, e := range rep.Errors {
						cmd.PrintErrf("%s: %s\n", firstNonEmpty(e.ID, fmt.Sprint(e.Index)), e.Message)
					}
					cmd.Println(partialStatusLine(rep, "records"))
				}
				return batchExit(rep.Saved, rep.Failed)
			})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "only records of this node")
	cmd.Flags().StringVar(&scopeID, "scope", "", "only records of this scope identifier")
	dr.register(cmd)
	return cmd
}
