package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/greenops"
	"github.com/rshade/carbonledger/internal/models"
)

// topGroups is how many categories and nodes a summary view lists.
const topGroups = 5

// rankedGroup is one grouping entry prepared for display.
type rankedGroup struct {
	Name string
	CO2e float64
}

// rankTotals orders groups by CO2e, largest first, then by name.
func rankTotals[T any](groups map[string]T, total func(T) float64, limit int) []rankedGroup {
	out := make([]rankedGroup, 0, len(groups))
	for name, g := range groups {
		out = append(out, rankedGroup{Name: name, CO2e: total(g)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CO2e != out[j].CO2e {
			return out[i].CO2e > out[j].CO2e
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// share returns part as a percentage of whole, 0 when whole is 0.
func share(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * percent100
}

// RenderSummary writes s as a box on terminals and as plain text otherwise.
func RenderSummary(w io.Writer, s *models.EmissionSummary, precision int) error {
	if isWriterTerminal(w) {
		return renderStyledSummary(w, s, precision)
	}
	return renderPlainSummary(w, s, precision)
}

func scopeOrder() []emission.ScopeType {
	return []emission.ScopeType{emission.Scope1, emission.Scope2, emission.Scope3}
}

func renderStyledSummary(w io.Writer, s *models.EmissionSummary, precision int) error {
	barWidth := calculateProgressBarWidth(calculateBoxWidth(getTerminalWidth(w)))
	muted := lipgloss.NewStyle().Foreground(colorMuted())
	bold := lipgloss.NewStyle().Bold(true)
	total := s.TotalEmissions.CO2e

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", s.ClientID, muted.Render(s.Period.Key()))
	b.WriteString(bold.Render("Total: " + greenops.FormatTonnes(total, precision)))
	b.WriteString("\n")
	if eq := greenops.CalculateFromTonnes(total); !eq.IsEmpty {
		b.WriteString(muted.Italic(true).Render(eq.DisplayText))
		b.WriteString("\n")
	}
	if s.Trends != nil {
		b.WriteString(renderTrend("vs "+s.Trends.Previous.Key(), s.Trends.TotalEmissions))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, st := range scopeOrder() {
		t := s.ByScope[string(st)]
		fmt.Fprintf(&b, "%-8s %s  %s\n", st, renderShareBar(share(t.CO2e, total), barWidth, boxTitleColor()),
			greenops.FormatFloat(t.CO2e, precision))
	}

	if cats := rankTotals(s.ByCategory, func(c models.CategoryTotals) float64 { return c.CO2e }, topGroups); len(cats) > 0 {
		b.WriteString("\n" + bold.Render("Top categories") + "\n")
		for _, g := range cats {
			fmt.Fprintf(&b, "  %-34s %s\n", truncate(g.Name, 34), greenops.FormatFloat(g.CO2e, precision))
		}
	}
	if nodes := rankTotals(s.ByNode, func(n models.NodeTotals) float64 { return n.CO2e }, topGroups); len(nodes) > 0 {
		b.WriteString("\n" + bold.Render("Top nodes") + "\n")
		for _, g := range nodes {
			label := s.ByNode[g.Name].Label
			if label == "" {
				label = g.Name
			}
			fmt.Fprintf(&b, "  %-34s %s\n", truncate(label, 34), greenops.FormatFloat(g.CO2e, precision))
		}
	}

	b.WriteString("\n")
	b.WriteString(muted.Render(fmt.Sprintf("%d records, version %d, calculated %s",
		s.Metadata.DataEntriesIncluded, s.Metadata.Version, s.Metadata.LastCalculated.Format("2006-01-02 15:04"))))
	if n := len(s.Metadata.Errors); n > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorWarning()).Render(
			fmt.Sprintf("⚠ %d record(s) could not be aggregated", n)))
	}

	return renderBox(w, "EMISSION SUMMARY", b.String())
}

func renderTrend(label string, t models.Trend) string {
	color := colorMuted()
	arrow := "→"
	switch t.Direction {
	case models.DirectionUp:
		color, arrow = colorFailed(), "↑"
	case models.DirectionDown:
		color, arrow = colorOK(), "↓"
	}
	return lipgloss.NewStyle().Foreground(color).Render(
		fmt.Sprintf("%s %s %s", arrow, greenops.FormatPercent(t.Percentage), label))
}

func renderPlainSummary(w io.Writer, s *models.EmissionSummary, precision int) error {
	if err := plainHeader(w, "EMISSION SUMMARY"); err != nil {
		return err
	}
	total := s.TotalEmissions.CO2e
	lines := []string{
		fmt.Sprintf("Client: %s", s.ClientID),
		fmt.Sprintf("Period: %s (%s to %s)", s.Period.Key(),
			s.From.Format("2006-01-02"), s.To.Format("2006-01-02")),
		fmt.Sprintf("Total: %s", greenops.FormatTonnes(total, precision)),
	}
	if eq := greenops.CalculateFromTonnes(total); !eq.IsEmpty {
		lines = append(lines, eq.DisplayText)
	}
	if s.Trends != nil {
		lines = append(lines, fmt.Sprintf("Trend: %s %s vs %s",
			s.Trends.TotalEmissions.Direction, greenops.FormatPercent(s.Trends.TotalEmissions.Percentage),
			s.Trends.Previous.Key()))
	}
	lines = append(lines, "")
	for _, st := range scopeOrder() {
		t := s.ByScope[string(st)]
		lines = append(lines, fmt.Sprintf("%s: %s (%.1f%%)", st, greenops.FormatFloat(t.CO2e, precision), share(t.CO2e, total)))
	}
	for _, g := range rankTotals(s.ByCategory, func(c models.CategoryTotals) float64 { return c.CO2e }, topGroups) {
		lines = append(lines, fmt.Sprintf("Category %s: %s", g.Name, greenops.FormatFloat(g.CO2e, precision)))
	}
	for _, g := range rankTotals(s.ByNode, func(n models.NodeTotals) float64 { return n.CO2e }, topGroups) {
		lines = append(lines, fmt.Sprintf("Node %s: %s", g.Name, greenops.FormatFloat(g.CO2e, precision)))
	}
	lines = append(lines, fmt.Sprintf("Records: %d, version %d", s.Metadata.DataEntriesIncluded, s.Metadata.Version))
	for _, e := range s.Metadata.Errors {
		lines = append(lines, fmt.Sprintf("Error: %s: %s", e.RecordID, e.Message))
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
