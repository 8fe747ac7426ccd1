package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/cli/pagination"
	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

const tabPadding = 2

// NewActivityCmd creates the activity command group.
func NewActivityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "activity", Short: "List, inspect, edit and delete activity records"}
	cmd.AddCommand(newActivityListCmd(), newActivityShowCmd(), newActivityEditCmd(), newActivityDeleteCmd())
	return cmd
}

// dateRange holds --from and --to. Both are inclusive calendar days.
type dateRange struct {
	from string
	to   string
}

func (d *dateRange) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&d.to, "to", "", "last day, YYYY-MM-DD")
}

// bounds returns the half-open UTC interval covering the days.
func (d *dateRange) bounds() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if d.from != "" {
		if from, err = time.Parse(time.DateOnly, d.from); err != nil {
			return from, to, fmt.Errorf("invalid --from %q: use YYYY-MM-DD", d.from)
		}
	}
	if d.to != "" {
		if to, err = time.Parse(time.DateOnly, d.to); err != nil {
			return from, to, fmt.Errorf("invalid --to %q: use YYYY-MM-DD", d.to)
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("--from %s is after --to %s", d.from, d.to)
	}
	return from, to, nil
}

// activityPage is the JSON form of activity list.
type activityPage struct {
	Records    []*models.ActivityRecord `json:"records"`
	Pagination pagination.Meta          `json:"pagination"`
}

func newActivityListCmd() *cobra.Command {
	var (
		nodeID  string
		scopeID string
		status  string
		sortBy  string
		dr      dateRange
		params  = pagination.NewParams()
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a client's activity records",
		Example: `  carbonledger activity list --client acme --node plant-1 --from 2025-01-01 --to 2025-03-31

  # Largest emitters first, second page of 20
  carbonledger activity list --client acme --sort co2e:desc --page 2 --page-size 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			if params.SortField, params.SortOrder, err = pagination.ParseSort(sortBy); err != nil {
				return err
			}
			if err := params.Validate(); err != nil {
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
			q := store.ActivityQuery{
				ClientID:        client,
				NodeID:          nodeID,
				ScopeIdentifier: scopeID,
				Status:          models.ProcessingStatus(status),
				From:            from,
				To:              to,
			}

			return withApp(cmd, func(a *app) error {
				records, err := a.store.QueryActivities(cmd.Context(), q)
				if err != nil {
					return err
				}
				sorted, err := pagination.SortActivities(records, params.SortField, params.SortOrder)
				if err != nil {
					return err
				}
				page := activityPage{
					Records:    pagination.Apply(sorted, params),
					Pagination: pagination.NewMeta(params, len(sorted)),
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), page)
				}
				return renderActivityTable(cmd, page)
			})
		},
	}

	cmd.Flags().StringVar(&nodeID, "node", "", "only records of this node")
	cmd.Flags().StringVar(&scopeID, "scope", "", "only records of this scope identifier")
	cmd.Flags().StringVar(&status, "status", "", "only records with this status: pending, processed or failed")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort as field[:asc|desc]; fields: timestamp, co2e, node, scope, status")
	cmd.Flags().IntVar(&params.Limit, "limit", pagination.DefaultLimit, "maximum records to show")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "records to skip")
	cmd.Flags().IntVar(&params.Page, "page", 0, "page number, starting at 1")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 0, "records per page (requires --page)")
	dr.register(cmd)
	return cmd
}

func renderActivityTable(cmd *cobra.Command, page activityPage) error {
	precision := outputPrecision()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "ID\tDate\tTime\tNode\tScope\tType\tStatus\tkgCO2e\tCumulative")
	fmt.Fprintln(w, "--\t----\t----\t----\t-----\t----\t------\t------\t----------")
	for _, r := range page.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Date, r.Time, r.NodeID, r.ScopeIdentifier, r.InputType, r.ProcessingStatus,
			greenops.FormatFloat(r.CalculatedEmissions.Incoming.Total().CO2e, precision),
			greenops.FormatFloat(r.CalculatedEmissions.Cumulative.Total().CO2e, precision))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	m := page.Pagination
	footer := fmt.Sprintf("\nShowing %d of %d records", m.Returned, m.TotalItems)
	if m.Page > 0 {
		footer += fmt.Sprintf(" (page %d of %d)", m.Page, m.TotalPages)
	}
	cmd.Println(footer)
	return nil
}

func newActivityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one activity record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				r, err := a.store.GetActivity(cmd.Context(), args[0])
				if errors.Is(err, store.ErrNotFound) || (err == nil && r.ClientID != client) {
					return fmt.Errorf("%w: %s", engine.ErrActivityNotFound, args[0])
				}
				if err != nil {
					return err
				}
				format, err := outputFormat(cmd)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), r)
				}
				return renderIngestResult(cmd, &engine.IngestResult{Record: r})
			})
		},
	}
}

func newActivityEditCmd() *cobra.Command {
	var af activityFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Replace the values, and optionally the date, of a record",
		Long: `Replaces a record's values and rebuilds its stream. When the date or time
changes the record moves within its stream and the summaries of both the old
and the new day are refreshed.`,
		Example: `  carbonledger activity edit 01JQ8Z... --client acme --value kwh=1300`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			values, err := af.payload()
			if err != nil {
				return err
			}
			req := engine.EditRequest{
				ClientID: client,
				Date:     af.date,
				Time:     af.time,
				Values:   values,
				Units:    af.units,
			}
			return withApp(cmd, func(a *app) error {
				res, err := a.service.EditActivity(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				return renderIngestResult(cmd, res)
			})
		},
	}
	af.register(cmd)
	return cmd
}

func newActivityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record and rebuild its stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.service.DeleteActivity(cmd.Context(), client, args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
