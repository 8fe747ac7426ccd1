package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for a date or time that cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

//nolint:gochecknoglobals // Accepted layouts, tried in order.
var (
	dateLayouts = []string{"02/01/2006", "2006-01-02", "2/1/2006"}
	timeLayouts = []string{"15:04:05", "15:04", "15:04:05.000"}
)

// ParseTimestamp combines a date ("DD/MM/YYYY" or "YYYY-MM-DD") and a time
// ("HH:MM" or "HH:MM:SS") in loc into a UTC instant. An empty time is
// midnight. A nil loc means UTC.
func ParseTimestamp(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidTimestamp)
	}

	var day time.Time
	var err error
	for _, layout := range dateLayouts {
		if day, err = time.ParseInLocation(layout, date, loc); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTimestamp, date)
	}
	if clock == "" {
		return day.UTC(), nil
	}

	var tod time.Time
	for _, layout := range timeLayouts {
		if tod, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidTimestamp, clock)
	}
	ts := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), loc)
	return ts.UTC(), nil
}

// FormatDate renders t the way records store their date field.
func FormatDate(t time.Time) string { return t.UTC().Format("02/01/2006") }

// FormatTime renders t the way records store their time field.
func FormatTime(t time.Time) string { return t.UTC().Format("15:04:05") }
