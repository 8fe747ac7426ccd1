package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/engine/batch"
	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/ingest"
)

// activityFlags are the record fields shared by ingest and activity edit.
type activityFlags struct {
	date   string
	time   string
	values []string
	units  map[string]string
}

func (f *activityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "record date, DD/MM/YYYY or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.time, "time", "", "record time, HH:MM[:SS] (default 00:00:00)")
	cmd.Flags().StringArrayVar(&f.values, "value", nil, "field value as name=value (repeatable)")
	cmd.Flags().StringToStringVar(&f.units, "unit", nil, "unit of a field as name=unit, for example kwh=MWh")
}

// payload parses the --value flags.
func (f *activityFlags) payload() (map[string]any, error) {
	if len(f.values) == 0 {
		return nil, fmt.Errorf("at least one --value is required")
	}
	out := make(map[string]any, len(f.values))
	for _, kv := range f.values {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --value %q: use name=value", kv)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	var (
		af        activityFlags
		nodeID    string
		scopeID   string
		inputType string
		source    string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest one activity record",
		Long: `Stores one activity record for a node and scope, calculates its emissions,
rebuilds the cumulative totals of its stream and refreshes the summaries
containing its date.`,
		Example: `  carbonledger ingest --client acme --node plant-1 --scope grid --date 01/03/2025 --value kwh=1200

  # Values with units are converted to the calculator's base unit
  carbonledger ingest --client acme --node plant-1 --scope grid --date 2025-03-02 --value kwh=1.2 --unit kwh=MWh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			values, err := af.payload()
			if err != nil {
				return err
			}
			req := engine.IngestRequest{
				ClientID:        client,
				NodeID:          nodeID,
				ScopeIdentifier: scopeID,
				InputType:       inputType,
				Source:          source,
				Date:            af.date,
				Time:            af.time,
				Values:          values,
				Units:           af.units,
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.service.Ingest(cmd.Context(), req)
				if err != nil {
					return err
				}
				return renderIngestResult(cmd, res)
			})
		},
	}

	af.register(cmd)
	cmd.Flags().StringVar(&nodeID, "node", "", "flowchart node ID")
	cmd.Flags().StringVar(&scopeID, "scope", "", "scope identifier within the node")
	cmd.Flags().StringVar(&inputType, "input-type", "manual", "input type: manual, API or IOT")
	cmd.Flags().StringVar(&source, "source", "", "free-form source label")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("date")

	cmd.AddCommand(newIngestCSVCmd())
	return cmd
}

func renderIngestResult(cmd *cobra.Command, res *engine.IngestResult) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	r := res.Record
	precision := outputPrecision()
	cmd.Printf("Record %s (%s) %s %s\n", r.ID, r.ProcessingStatus, r.Date, r.Time)
	cmd.Printf("  Stream:     %s\n", r.Stream())
	cmd.Printf("  Incoming:   %s kgCO2e\n", greenops.FormatFloat(r.CalculatedEmissions.Incoming.Total().CO2e, precision))
	cmd.Printf("  Cumulative: %s kgCO2e (%d entries)\n",
		greenops.FormatFloat(r.CalculatedEmissions.Cumulative.Total().CO2e, precision), r.Cumulative.EntryCount)
	if r.StatusMessage != "" {
		cmd.Printf("  Message:    %s\n", r.StatusMessage)
	}
	for _, w := range res.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
	return nil
}

func newIngestCSVCmd() *cobra.Command {
	var inputType string

	cmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Ingest activity records from a CSV file",
		Long: `Reads a CSV file ("-" for stdin) with a header row. The columns nodeId,
scopeIdentifier, date, time and inputType are reserved; every other column is
a data field. A unit may follow a field name in parentheses: "wasteMass (t)".

Rows that fail are reported with their line numbers and do not stop the
others. When some rows fail the command exits with status 3.`,
		Example: `  carbonledger ingest csv readings.csv --client acme`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			rows, rowErrs, err := readCSVFile(cmd, args[0])
			if err != nil {
				return err
			}
			reqs := make([]engine.IngestRequest, len(rows))
			for i, row := range rows {
				it := row.InputType
				if it == "" {
					it = inputType
				}
				reqs[i] = engine.IngestRequest{
					ClientID:        client,
					NodeID:          row.NodeID,
					ScopeIdentifier: row.ScopeIdentifier,
					InputType:       it,
					Source:          "csv",
					Date:            row.Date,
					Time:            row.Time,
					Values:          row.Payload.Values,
					Units:           row.Payload.Units,
				}
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.service.IngestBatch(cmd.Context(), reqs)
				if err != nil {
					return err
				}
				return reportCSV(cmd, rows, rowErrs, res)
			})
		},
	}
	cmd.Flags().StringVar(&inputType, "input-type", "csv", "input type of rows without an inputType column")
	return cmd
}

func readCSVFile(cmd *cobra.Command, path string) ([]ingest.Row, []ingest.RowError, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		r = f
	}
	return ingest.ReadCSV(r)
}

// csvReport is the JSON form of a CSV ingestion.
type csvReport struct {
	Rows     int               `json:"rows"`
	Saved    int               `json:"saved"`
	Failed   int               `json:"failed"`
	Errors   []ingest.RowError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// reportCSV prints the outcome and returns an ExitError when rows failed.
// Batch item indexes are mapped back to CSV line numbers.
func reportCSV(cmd *cobra.Command, rows []ingest.Row, rowErrs []ingest.RowError, res *engine.BatchIngestResult) error {
	rep := csvReport{
		Rows:     len(rows) + len(rowErrs),
		Saved:    res.Report.Saved,
		Failed:   res.Report.Failed + len(rowErrs),
		Errors:   append([]ingest.RowError(nil), rowErrs...),
		Warnings: res.Warnings,
	}
	for _, ie := range res.Report.Errors {
		line := ie.Index + 1
		if ie.Index >= 0 && ie.Index < len(rows) {
			line = rows[ie.Index].Line
		}
		rep.Errors = append(rep.Errors, ingest.RowError{Line: line, Err: ie.Message})
	}
	sort.Slice(rep.Errors, func(i, j int) bool { return rep.Errors[i].Line < rep.Errors[j].Line })

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if format == formatJSON {
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		for _, e := range rep.Errors {
			cmd.PrintErrf("line %d: %s\n", e.Line, e.Err)
		}
		for _, w := range rep.Warnings {
			cmd.PrintErrf("Warning: %s\n", w)
		}
		cmd.Println(partialStatusLine(&batch.Report{Total: rep.Rows, Saved: rep.Saved, Failed: rep.Failed}, "rows"))
	}
	return batchExit(rep.Saved, rep.Failed)
}

// partialStatusLine is the one-line outcome of a batch.
func partialStatusLine(r *batch.Report, noun string) string {
	switch {
	case r.Failed == 0:
		return fmt.Sprintf("OK: %d of %d %s saved", r.Saved, r.Total, noun)
	case r.Saved == 0:
		return fmt.Sprintf("FAILED: 0 of %d %s saved", r.Total, noun)
	default:
		return fmt.Sprintf("PARTIAL: %d of %d %s saved, %d failed", r.Saved, r.Total, noun, r.Failed)
	}
}

// batchExit turns a failed batch into an exit status.
func batchExit(saved, failed int) error {
	switch {
	case failed == 0:
		return nil
	case saved == 0:
		return &ExitError{Code: ExitFailure, Reason: fmt.Sprintf("all %d items failed", failed)}
	default:
		return &ExitError{Code: ExitPartial, Reason: fmt.Sprintf("%d items failed", failed)}
	}
}
