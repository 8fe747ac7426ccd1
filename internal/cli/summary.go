package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

// periodFlags select one summary period.
type periodFlags struct {
	kind  string
	year  int
	month int
	week  int
	day   int
	date  string
}

func (p *periodFlags) register(cmd *cobra.Command, defaultKind string) {
	cmd.Flags().StringVar(&p.kind, "period", defaultKind, "period type: daily, weekly, monthly, yearly or all-time")
	cmd.Flags().IntVar(&p.year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&p.month, "month", 0, "month 1-12 (default: current)")
	cmd.Flags().IntVar(&p.week, "week", 0, "ISO week 1-53 (default: current)")
	cmd.Flags().IntVar(&p.day, "day", 0, "day of month (default: current)")
	cmd.Flags().StringVar(&p.date, "date", "", "select the period containing this day, YYYY-MM-DD")
}

// period resolves the flags against now. --date wins over the numeric
// fields; unset numeric fields take now's value.
func (p *periodFlags) period(now time.Time) (models.Period, error) {
	kind, ok := models.ParsePeriodType(p.kind)
	if !ok {
		return models.Period{}, fmt.Errorf("%w: unknown type %q", models.ErrInvalidPeriod, p.kind)
	}

	if p.date != "" {
		day, err := time.Parse(time.DateOnly, p.date)
		if err != nil {
			return models.Period{}, fmt.Errorf("invalid --date %q: use YYYY-MM-DD", p.date)
		}
		for _, candidate := range models.PeriodsContaining(day) {
			if candidate.Type == kind {
				return candidate, nil
			}
		}
	}

	now = now.UTC()
	isoYear, isoWeek := now.ISOWeek()
	per := models.Period{Type: kind}
	switch kind {
	case models.PeriodYearly:
		per.Year = orDefault(p.year, now.Year())
	case models.PeriodMonthly:
		per.Year = orDefault(p.year, now.Year())
		per.Month = orDefault(p.month, int(now.Month()))
	case models.PeriodWeekly:
		per.Year = orDefault(p.year, isoYear)
		per.Week = orDefault(p.week, isoWeek)
	case models.PeriodDaily:
		per.Year = orDefault(p.year, now.Year())
		per.Month = orDefault(p.month, int(now.Month()))
		per.Day = orDefault(p.day, now.Day())
	}
	return per, per.Validate()
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	var (
		pf     periodFlags
		cached bool
		user   string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Calculate and show the emission summary of a period",
		Long: `Recomputes the client's summary for one period from its processed records,
stores it and prints it. Totals are in tonnes CO2e, broken down by scope,
category, node and more, with the trend against the previous period when
that summary exists.

With --cached the stored summary is printed without recomputing it.`,
		Example: `  carbonledger summary --client acme --period monthly --year 2025 --month 3
  carbonledger summary --client acme --period weekly --date 2025-03-12
  carbonledger summary --client acme --period all-time -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				var s *models.EmissionSummary
				if cached {
					s, err = a.store.GetSummary(cmd.Context(), client, p)
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no stored %s summary for %s", p.Key(), client)
					}
				} else {
					s, err = a.aggregator.CalculateEmissionSummary(cmd.Context(), client, p, user)
					if err == nil && s == nil {
						err = fmt.Errorf("%w: %s", engine.ErrFlowchartNotFound, client)
					}
				}
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), s)
				}
				return RenderSummary(cmd.OutOrStdout(), s, outputPrecision())
			})
		},
	}
	pf.register(cmd, string(models.PeriodMonthly))
	cmd.Flags().BoolVar(&cached, "cached", false, "print the stored summary without recomputing it")
	cmd.Flags().StringVar(&user, "user", currentUser(), "recorded as the summary's calculatedBy")

	cmd.AddCommand(newSummaryListCmd())
	return cmd
}

// currentUser names the CLI caller for summary metadata.
func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func newSummaryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the client's stored summaries",
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
				summaries, err := a.store.ListSummaries(cmd.Context(), client)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), summaries)
				}
				precision := outputPrecision()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
				fmt.Fprintln(w, "Period\ttCO2e\tRecords\tVersion\tCalculated")
				fmt.Fprintln(w, "------\t-----\t-------\t-------\t----------")
				for _, s := range summaries {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.Period.Key(),
						greenops.FormatFloat(s.TotalEmissions.CO2e, precision),
						s.Metadata.DataEntriesIncluded, s.Metadata.Version,
						s.Metadata.LastCalculated.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}
