package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/sbti"
	"github.com/rshade/carbonledger/internal/store"
)

// trajectoryFlags are the inputs of trajectory and target set.
type trajectoryFlags struct {
	alignment      string
	targetType     string
	method         string
	baseYear       int
	targetYear     int
	scope1         float64
	scope2         float64
	scope3         float64
	fromSummary    bool
	reduction      float64
	coverage       float64
	includesScope3 bool
	baseActivity   float64
	intensity      float64
	activityTarget float64
}

func (f *trajectoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.alignment, "alignment", string(sbti.Align15C), "temperature alignment: 1.5C or WB2C")
	cmd.Flags().StringVar(&f.targetType, "type", string(models.TargetNearTerm), "target type: near_term or net_zero")
	cmd.Flags().StringVar(&f.method, "method", string(models.MethodAbsolute), "reduction method: absolute or sda")
	cmd.Flags().IntVar(&f.baseYear, "base-year", 0, "base year")
	cmd.Flags().IntVar(&f.targetYear, "target-year", 0, "target year")
	cmd.Flags().Float64Var(&f.scope1, "scope1", 0, "base-year Scope 1 emissions, tCO2e")
	cmd.Flags().Float64Var(&f.scope2, "scope2", 0, "base-year Scope 2 emissions, tCO2e")
	cmd.Flags().Float64Var(&f.scope3, "scope3", 0, "base-year Scope 3 emissions, tCO2e")
	cmd.Flags().BoolVar(&f.fromSummary, "from-summary", false, "take base emissions from the client's base-year summary")
	cmd.Flags().Float64Var(&f.reduction, "reduction", 0, "reduction percent (default: the alignment's minimum)")
	cmd.Flags().Float64Var(&f.coverage, "coverage", 0, "Scope 1+2 coverage percent of the target boundary (default 100)")
	cmd.Flags().BoolVar(&f.includesScope3, "includes-scope3", false, "a Scope 3 target accompanies this one")
	cmd.Flags().Float64Var(&f.baseActivity, "base-activity", 0, "SDA: base-year activity in the sector unit")
	cmd.Flags().Float64Var(&f.intensity, "target-intensity", 0, "SDA: target-year intensity, tCO2e per activity unit")
	cmd.Flags().Float64Var(&f.activityTarget, "activity-target", 0, "SDA: target-year activity (default: base activity)")
	cmd.MarkFlagsMutuallyExclusive("from-summary", "scope1")
	cmd.MarkFlagsMutuallyExclusive("from-summary", "scope2")
	cmd.MarkFlagsMutuallyExclusive("from-summary", "scope3")
	_ = cmd.MarkFlagRequired("base-year")
	_ = cmd.MarkFlagRequired("target-year")
}

func (f *trajectoryFlags) request(clientID string) (sbti.TrajectoryRequest, error) {
	alignment, ok := sbti.ParseAlignment(f.alignment)
	if !ok {
		return sbti.TrajectoryRequest{}, fmt.Errorf("%w: unknown alignment %q", sbti.ErrInvalidRequest, f.alignment)
	}
	return sbti.TrajectoryRequest{
		ClientID:               clientID,
		Alignment:              alignment,
		TargetType:             models.TargetType(f.targetType),
		Method:                 models.TargetMethod(f.method),
		BaseYear:               f.baseYear,
		TargetYear:             f.targetYear,
		BaseEmissions:          models.ScopeEmissions{Scope1: f.scope1, Scope2: f.scope2, Scope3: f.scope3},
		ReductionPercent:       f.reduction,
		Scope12CoveragePercent: f.coverage,
		IncludesScope3:         f.includesScope3,
		BaseActivity:           f.baseActivity,
		TargetIntensity:        f.intensity,
		ActivityTarget:         f.activityTarget,
	}, nil
}

// build resolves base emissions and builds the trajectory. The app is only
// needed with --from-summary.
func (f *trajectoryFlags) build(cmd *cobra.Command, a *app, clientID string) (*sbti.TrajectoryResult, error) {
	req, err := f.request(clientID)
	if err != nil {
		return nil, err
	}
	if f.fromSummary {
		if clientID == "" {
			return nil, errClientRequired
		}
		p := models.Period{Type: models.PeriodYearly, Year: f.baseYear}
		s, err := a.aggregator.CalculateEmissionSummary(cmd.Context(), clientID, p, currentUser())
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, fmt.Errorf("%w: %s", engine.ErrFlowchartNotFound, clientID)
		}
		req.BaseEmissions = sbti.BaseFromSummary(s)
	}
	return sbti.BuildTrajectory(req)
}

func renderTrajectoryResult(cmd *cobra.Command, res *sbti.TrajectoryResult) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return RenderTrajectory(cmd.OutOrStdout(), viewFromResult(res), outputPrecision())
}

// NewTrajectoryCmd creates the trajectory command.
func NewTrajectoryCmd() *cobra.Command {
	var f trajectoryFlags

	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "Build an SBTi reduction trajectory without saving it",
		Long: `Builds a year-by-year linear reduction pathway from the base year to the
target year and checks it against the SBTi boundary criteria (Scope 1+2
coverage, Scope 3 materiality, minimum ambition).`,
		Example: `  carbonledger trajectory --base-year 2020 --target-year 2030 --scope1 1200 --scope2 800
  carbonledger trajectory --client acme --base-year 2024 --target-year 2050 --type net_zero --from-summary`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _ := cmd.Flags().GetString("client")
			if !f.fromSummary {
				res, err := f.build(cmd, nil, client)
				if err != nil {
					return err
				}
				return renderTrajectoryResult(cmd, res)
			}
			return withApp(cmd, func(a *app) error {
				res, err := f.build(cmd, a, client)
				if err != nil {
					return err
				}
				return renderTrajectoryResult(cmd, res)
			})
		},
	}
	f.register(cmd)
	return cmd
}

// NewTargetCmd creates the target command group.
func NewTargetCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "target", Short: "Manage the client's SBTi targets"}
	cmd.AddCommand(newTargetSetCmd(), newTargetShowCmd(), newTargetListCmd())
	return cmd
}

func newTargetSetCmd() *cobra.Command {
	var f trajectoryFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Build a trajectory and save it as the client's target",
		Long: `Builds the trajectory like "trajectory" and stores it as the client's target
of its type, replacing the previous one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := clientID(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				res, err := f.build(cmd, a, client)
				if err != nil {
					return err
				}
				target := res.Target(time.Now())
				if err := a.store.PutTarget(cmd.Context(), target); err != nil {
					return fmt.Errorf("saving target: %w", err)
				}
				notify.Emit(cmd.Context(), a.sink, models.Event{
					Type:     models.EventTargetUpdated,
					ClientID: client,
					Data: map[string]any{
						"targetType": string(target.TargetType),
						"baseYear":   target.BaseYear,
						"targetYear": target.TargetYear,
						"passed":     res.Passed(),
					},
				})
				logger.Info().Ctx(cmd.Context()).
					Str("client_id", client).
					Str("target_type", string(target.TargetType)).
					Bool("passed", res.Passed()).
					Msg("target saved")
				return renderTrajectoryResult(cmd, res)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newTargetShowCmd() *cobra.Command {
	var targetType string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the client's saved target",
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
				t, err := a.store.GetTarget(cmd.Context(), client, models.TargetType(targetType))
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no %s target for %s", targetType, client)
				}
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), t)
				}
				return RenderTrajectory(cmd.OutOrStdout(), viewFromTarget(t), outputPrecision())
			})
		},
	}
	cmd.Flags().StringVar(&targetType, "type", string(models.TargetNearTerm), "target type: near_term or net_zero")
	return cmd
}

func newTargetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the client's saved targets",
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
				targets, err := a.store.ListTargets(cmd.Context(), client)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), targets)
				}
				for _, t := range targets {
					cmd.Printf("%s\t%s\t%d-%d\t%.1f%%\tupdated %s\n", t.TargetType, t.Method, t.BaseYear, t.TargetYear,
						t.MinimumReductionPercent, t.UpdatedAt.Format(time.DateOnly))
				}
				return nil
			})
		},
	}
}
