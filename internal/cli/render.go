package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/carbonledger/internal/config"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// Box rendering constants.
const (
	defaultBoxWidth     = 60
	minBoxWidth         = 30
	progressBarWidth    = 30
	minProgressBarWidth = 10
	progressFilledChar  = "█"
	progressEmptyChar   = "░"
	narrowTerminalWidth = 40
	boxPaddingWidth     = 4 // Padding for box borders.
	layoutWidthPercent  = 0.8
	barPaddingWidth     = 14 // Account for borders, padding, and percentage label.

	percent100 = 100
)

func boxBorderColor() lipgloss.Color { return lipgloss.Color("240") }

func boxTitleColor() lipgloss.Color { return lipgloss.Color("39") }

func colorWarning() lipgloss.Color { return lipgloss.Color("214") }

func colorMuted() lipgloss.Color { return lipgloss.Color("246") }

func colorOK() lipgloss.Color { return lipgloss.Color("42") }

func colorFailed() lipgloss.Color { return lipgloss.Color("196") }

// outputFormat returns the --output flag, falling back to the configured
// default.
func outputFormat(cmd *cobra.Command) (string, error) {
	f, _ := cmd.Flags().GetString("output")
	if f == "" {
		f = config.GetDefaultOutputFormat()
	}
	f = strings.ToLower(strings.TrimSpace(f))
	switch f {
	case formatTable, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table or json)", f)
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isWriterTerminal reports whether w is a TTY.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// getTerminalWidth returns the width of w, or of stdout when w is not a
// terminal.
func getTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		width, _, err := term.GetSize(int(f.Fd()))
		if err == nil && width > 0 {
			return width
		}
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultBoxWidth + boxPaddingWidth
	}
	return width
}

// calculateBoxWidth calculates the appropriate box width based on terminal width.
func calculateBoxWidth(termWidth int) int {
	if termWidth < narrowTerminalWidth {
		return minBoxWidth
	}
	boxWidth := int(float64(termWidth) * layoutWidthPercent)
	boxWidth = min(boxWidth, defaultBoxWidth)
	boxWidth = max(boxWidth, minBoxWidth)
	return boxWidth
}

func calculateProgressBarWidth(boxWidth int) int {
	barWidth := boxWidth - barPaddingWidth
	barWidth = max(barWidth, minProgressBarWidth)
	barWidth = min(barWidth, progressBarWidth)
	return barWidth
}

// renderShareBar draws share (0..100) of width cells.
func renderShareBar(share float64, width int, color lipgloss.Color) string {
	share = max(0, min(share, percent100))
	filledWidth := int(share / percent100 * float64(width))
	filled := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(progressFilledChar, filledWidth))
	empty := lipgloss.NewStyle().Foreground(boxBorderColor()).Render(strings.Repeat(progressEmptyChar, width-filledWidth))
	return filled + empty + fmt.Sprintf(" %3.0f%%", share)
}

// renderBox wraps content in the rounded box used by every styled view.
func renderBox(w io.Writer, title, content string) error {
	boxWidth := calculateBoxWidth(getTerminalWidth(w))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(boxTitleColor())
	borderStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(boxBorderColor()).
		Padding(0, 1).
		Width(boxWidth)

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", boxWidth-boxPaddingWidth))
	b.WriteString("\n")
	b.WriteString(content)

	_, err := fmt.Fprintln(w, borderStyle.Render(b.String()))
	return err
}

// plainHeader writes title underlined with '='.
func plainHeader(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title)))
	return err
}

// outputPrecision is the number of decimals figures are printed with.
func outputPrecision() int {
	return config.GetOutputPrecision()
}
