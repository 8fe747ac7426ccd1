package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTL is the default flowchart cache TTL.
	DefaultTTL = 5 * time.Minute

	// MaxTTL is the maximum allowed TTL.
	MaxTTL = 24 * time.Hour

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// EnvTTL overrides the flowchart cache TTL. A value of 0 disables the
	// cache.
	EnvTTL = "CARBONLEDGER_FLOWCHART_CACHE_TTL"
)

// ErrInvalidTTL is returned for a TTL outside [0, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between 0 and %s", MaxTTL)

// ParseTTL parses a TTL given as integer seconds ("300") or as a duration
// string ("5m", "1h30m").
func ParseTTL(s string) (time.Duration, error) {
	var d time.Duration
	if seconds, err := strconv.Atoi(s); err == nil {
		d = time.Duration(seconds) * time.Second
	} else {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", perr)
		}
		d = parsed
	}
	if d < 0 || d > MaxTTL {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return d, nil
}

// TTLFromEnv returns the TTL from EnvTTL, or fallback when the variable is
// unset or invalid.
func TTLFromEnv(fallback time.Duration) time.Duration {
	envVal := os.Getenv(EnvTTL)
	if envVal == "" {
		return fallback
	}
	d, err := ParseTTL(envVal)
	if err != nil {
		return fallback
	}
	return d
}

// FormatDuration formats a duration compactly: "45s", "5m", "1h30m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % minutesPerHour
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
