package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/sbti"
)

// trajectoryView is what the trajectory and target views render. Both a
// freshly built trajectory and a stored target convert to it.
type trajectoryView struct {
	Title            string
	ClientID         string
	Alignment        string
	TargetType       models.TargetType
	Method           models.TargetMethod
	BaseYear         int
	TargetYear       int
	BaseEmission     float64
	MinimumReduction float64
	AnnualReduction  float64
	Points           []models.TrajectoryPoint
	Checks           []models.CoverageCheck
}

func viewFromResult(r *sbti.TrajectoryResult) trajectoryView {
	return trajectoryView{
		Title:            "SBTI TRAJECTORY",
		ClientID:         r.ClientID,
		Alignment:        string(r.Alignment),
		TargetType:       r.TargetType,
		Method:           r.Method,
		BaseYear:         r.BaseYear,
		TargetYear:       r.TargetYear,
		BaseEmission:     r.BaseEmission,
		MinimumReduction: r.MinimumReductionPercent,
		AnnualReduction:  r.AnnualReductionPercent,
		Points:           r.Trajectory,
		Checks:           r.Checks,
	}
}

func viewFromTarget(t *models.SbtiTarget) trajectoryView {
	return trajectoryView{
		Title:            "SBTI TARGET",
		ClientID:         t.ClientID,
		TargetType:       t.TargetType,
		Method:           t.Method,
		BaseYear:         t.BaseYear,
		TargetYear:       t.TargetYear,
		BaseEmission:     t.BaseEmissions.Total(),
		MinimumReduction: t.MinimumReductionPercent,
		AnnualReduction:  t.AnnualReductionPercent,
		Points:           t.Trajectory,
		Checks:           t.Checks,
	}
}

// RenderTrajectory writes v as a box on terminals and as plain text otherwise.
func RenderTrajectory(w io.Writer, v trajectoryView, precision int) error {
	if isWriterTerminal(w) {
		return renderStyledTrajectory(w, v, precision)
	}
	return renderPlainTrajectory(w, v, precision)
}

func (v trajectoryView) heading() string {
	parts := []string{v.ClientID, string(v.TargetType), string(v.Method)}
	if v.Alignment != "" {
		parts = append(parts, v.Alignment)
	}
	return strings.Join(parts, " · ")
}

func renderStyledTrajectory(w io.Writer, v trajectoryView, precision int) error {
	barWidth := calculateProgressBarWidth(calculateBoxWidth(getTerminalWidth(w)))
	muted := lipgloss.NewStyle().Foreground(colorMuted())

	var b strings.Builder
	b.WriteString(muted.Render(v.heading()))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Base %d: %s\n", v.BaseYear, greenops.FormatTonnes(v.BaseEmission, precision))
	fmt.Fprintf(&b, "Reduction: %.1f%% by %d (%.2f%%/yr)\n\n", v.MinimumReduction, v.TargetYear, v.AnnualReduction)

	for _, p := range v.Points {
		fmt.Fprintf(&b, "%d %s  %s\n", p.Year,
			renderShareBar(percent100-p.CumulativeReductionPercent, barWidth, colorOK()),
			greenops.FormatFloat(p.TargetEmission, precision))
	}

	if len(v.Checks) > 0 {
		b.WriteString("\n")
	}
	for _, c := range v.Checks {
		mark := lipgloss.NewStyle().Foreground(colorOK()).Render("✓")
		if !c.Passed {
			mark = lipgloss.NewStyle().Foreground(colorFailed()).Render("✗")
		}
		line := fmt.Sprintf("%s %s: %.1f (required %.1f)", mark, c.Name, c.Value, c.Required)
		if c.Message != "" && !c.Passed {
			line += "\n  " + lipgloss.NewStyle().Foreground(colorWarning()).Render(c.Message)
		}
		b.WriteString(line + "\n")
	}

	return renderBox(w, v.Title, strings.TrimRight(b.String(), "\n"))
}

func renderPlainTrajectory(w io.Writer, v trajectoryView, precision int) error {
	if err := plainHeader(w, v.Title); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\nBase %d: %s\nReduction: %.1f%% by %d (%.2f%%/yr)\n",
		v.heading(), v.BaseYear, greenops.FormatTonnes(v.BaseEmission, precision),
		v.MinimumReduction, v.TargetYear, v.AnnualReduction); err != nil {
		return err
	}
	for _, p := range v.Points {
		if _, err := fmt.Fprintf(w, "%d: %s (-%.1f%%)\n", p.Year,
			greenops.FormatFloat(p.TargetEmission, precision), p.CumulativeReductionPercent); err != nil {
			return err
		}
	}
	for _, c := range v.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s %s: %.1f (required %.1f)\n", status, c.Name, c.Value, c.Required); err != nil {
			return err
		}
	}
	return nil
}
