package emission

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rshade/carbonledger/internal/greenops"
)

// Lookup reads a numeric value by key. The bool is false when the key is
// absent or its value is not numeric.
type Lookup func(key string) (float64, bool)

// FromFloats wraps a float map.
func FromFloats(m map[string]float64) Lookup {
	return func(key string) (float64, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// FromBag wraps a free-form configuration bag. Strings holding numbers and
// JSON numbers are accepted; anything else is treated as absent.
func FromBag(m map[string]any) Lookup {
	return func(key string) (float64, bool) {
		raw, ok := m[key]
		if !ok {
			return 0, false
		}
		return ToFloat(raw)
	}
}

// Candidate is one (source, key) pair tried by FirstPresent.
type Candidate struct {
	From Lookup
	Key  string
}

// Try expands one source into candidates for each key, in order.
func Try(from Lookup, keys ...string) []Candidate {
	out := make([]Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, Candidate{From: from, Key: k})
	}
	return out
}

// TryAll expands several sources, source-major: every key of the first
// source is tried before the second source is consulted.
func TryAll(froms []Lookup, keys ...string) []Candidate {
	out := make([]Candidate, 0, len(froms)*len(keys))
	for _, from := range froms {
		out = append(out, Try(from, keys...)...)
	}
	return out
}

// FirstPresent returns the first candidate value that exists.
func FirstPresent(groups ...[]Candidate) (float64, bool) {
	for _, group := range groups {
		for _, c := range group {
			if c.From == nil {
				continue
			}
			if v, ok := c.From(c.Key); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// FirstPresentOr is FirstPresent with a default.
func FirstPresentOr(def float64, groups ...[]Candidate) float64 {
	if v, ok := FirstPresent(groups...); ok {
		return v
	}
	return def
}

// FirstString returns the first non-empty string stored under any key of
// the given bags.
func FirstString(bags []map[string]any, keys ...string) string {
	for _, bag := range bags {
		for _, k := range keys {
			if s, ok := bag[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// ToFloat converts a loosely typed value into a float64. NaN and Inf are
// rejected.
func ToFloat(raw any) (float64, bool) {
	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case float32:
		v = float64(t)
	case int:
		v = float64(t)
	case int64:
		v = float64(t)
	case int32:
		v = float64(t)
	case uint64:
		v = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Fraction normalizes a value given either as a percentage (40) or as a
// fraction (0.4) into [0, 1]. Values above 1 are read as percentages.
func Fraction(v float64) float64 {
	return greenops.NormalizePercent(v)
}
