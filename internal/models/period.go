package models

import (
	"errors"
	"fmt"
	"time"
)

// PeriodType is the granularity of an emission summary.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodAllTime PeriodType = "all-time"
)

// ErrInvalidPeriod is returned for a period whose fields do not name a
// real calendar interval.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriodType accepts the canonical names plus a few spellings.
func ParsePeriodType(s string) (PeriodType, bool) {
	switch normalizeToken(s) {
	case "daily", "day":
		return PeriodDaily, true
	case "weekly", "week":
		return PeriodWeekly, true
	case "monthly", "month":
		return PeriodMonthly, true
	case "yearly", "year", "annual":
		return PeriodYearly, true
	case "all-time", "alltime", "all_time", "all":
		return PeriodAllTime, true
	default:
		return "", false
	}
}

// Period identifies one summary interval. Only the fields relevant to Type
// are meaningful; Week is an ISO 8601 week number within Year.
type Period struct {
	Type  PeriodType `json:"type"`
	Year  int        `json:"year,omitempty"`
	Month int        `json:"month,omitempty"`
	Week  int        `json:"week,omitempty"`
	Day   int        `json:"day,omitempty"`
}

// Validate checks that p names a real interval.
func (p Period) Validate() error {
	switch p.Type {
	case PeriodAllTime:
		return nil
	case PeriodYearly:
		if p.Year < 1 {
			return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
		}
	case PeriodMonthly:
		if p.Year < 1 || p.Month < 1 || p.Month > 12 {
			return fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, p.Year, p.Month)
		}
	case PeriodWeekly:
		if p.Year < 1 || p.Week < 1 || p.Week > 53 {
			return fmt.Errorf("%w: %d-W%02d", ErrInvalidPeriod, p.Year, p.Week)
		}
		if y, w := isoWeekStart(p.Year, p.Week).ISOWeek(); y != p.Year || w != p.Week {
			return fmt.Errorf("%w: %d has no ISO week %d", ErrInvalidPeriod, p.Year, p.Week)
		}
	case PeriodDaily:
		d := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
		if p.Year < 1 || d.Year() != p.Year || int(d.Month()) != p.Month || d.Day() != p.Day {
			return fmt.Errorf("%w: %d-%02d-%02d", ErrInvalidPeriod, p.Year, p.Month, p.Day)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPeriod, p.Type)
	}
	return nil
}

// Bounds returns the half-open UTC interval [from, to) covered by p.
// All-time runs from the Unix epoch to now.
func (p Period) Bounds(now time.Time) (time.Time, time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	switch p.Type {
	case PeriodYearly:
		from := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), nil
	case PeriodMonthly:
		from := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), nil
	case PeriodWeekly:
		from := isoWeekStart(p.Year, p.Week)
		return from, from.AddDate(0, 0, 7), nil
	case PeriodDaily:
		from := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1), nil
	default:
		return time.Unix(0, 0).UTC(), now.UTC(), nil
	}
}

// Previous returns the period of the same type one unit earlier. All-time
// has no predecessor.
func (p Period) Previous() (Period, bool) {
	switch p.Type {
	case PeriodYearly:
		return Period{Type: p.Type, Year: p.Year - 1}, true
	case PeriodMonthly:
		if p.Month == 1 {
			return Period{Type: p.Type, Year: p.Year - 1, Month: 12}, true
		}
		return Period{Type: p.Type, Year: p.Year, Month: p.Month - 1}, true
	case PeriodWeekly:
		y, w := isoWeekStart(p.Year, p.Week).AddDate(0, 0, -7).ISOWeek()
		return Period{Type: p.Type, Year: y, Week: w}, true
	case PeriodDaily:
		d := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		return Period{Type: p.Type, Year: d.Year(), Month: int(d.Month()), Day: d.Day()}, true
	default:
		return Period{}, false
	}
}

// Key is a stable string form used as a store key component.
func (p Period) Key() string {
	switch p.Type {
	case PeriodYearly:
		return fmt.Sprintf("yearly:%04d", p.Year)
	case PeriodMonthly:
		return fmt.Sprintf("monthly:%04d-%02d", p.Year, p.Month)
	case PeriodWeekly:
		return fmt.Sprintf("weekly:%04d-W%02d", p.Year, p.Week)
	case PeriodDaily:
		return fmt.Sprintf("daily:%04d-%02d-%02d", p.Year, p.Month, p.Day)
	default:
		return string(PeriodAllTime)
	}
}

// String implements fmt.Stringer.
func (p Period) String() string { return p.Key() }

// PeriodsContaining returns every summary period that includes t, finest
// first.
func PeriodsContaining(t time.Time) []Period {
	t = t.UTC()
	y, w := t.ISOWeek()
	return []Period{
		{Type: PeriodDaily, Year: t.Year(), Month: int(t.Month()), Day: t.Day()},
		{Type: PeriodWeekly, Year: y, Week: w},
		{Type: PeriodMonthly, Year: t.Year(), Month: int(t.Month())},
		{Type: PeriodYearly, Year: t.Year()},
		{Type: PeriodAllTime},
	}
}

// isoWeekStart returns the Monday that starts ISO week w of year y. January
// 4th always falls in week 1.
func isoWeekStart(y, w int) time.Time {
	jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(w-1)*7)
}
