package greenops

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer gives English thousand separators regardless of the host locale.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators: 18248 -> "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat rounds f to precision decimals and adds thousand separators
// to the integer part: FormatFloat(1234.567, 2) -> "1,234.57".
func FormatFloat(f float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	formatted := strconv.FormatFloat(f, 'f', precision, 64)
	if precision == 0 {
		n, err := strconv.ParseInt(formatted, 10, 64)
		if err != nil {
			return formatted
		}
		return FormatNumber(n)
	}

	intPart, frac, _ := strings.Cut(formatted, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return formatted
	}
	sign := ""
	if n == 0 && strings.HasPrefix(intPart, "-") {
		sign = "-"
	}
	return sign + FormatNumber(n) + "." + frac
}

// FormatTonnes renders a tonnes figure with its unit: "1,234.57 tCO2e".
func FormatTonnes(t float64, precision int) string {
	return FormatFloat(t, precision) + " tCO2e"
}

// FormatPercent renders a signed percentage with one decimal: "+12.5%".
func FormatPercent(p float64) string {
	if p > 0 {
		return "+" + strconv.FormatFloat(p, 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

// FormatLarge abbreviates values of a million and above: 1500000000 ->
// "~1.5 billion". Smaller values use FormatNumber.
func FormatLarge(n float64) string {
	switch {
	case n >= BillionThreshold:
		return fmt.Sprintf("~%.1f billion", n/BillionThreshold)
	case n >= LargeNumberThreshold:
		return fmt.Sprintf("~%.1f million", n/LargeNumberThreshold)
	default:
		return FormatNumber(int64(math.Round(n)))
	}
}
