package ingest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/greenops"
)

// Payload is a raw activity submission before normalization.
type Payload struct {
	Values map[string]any
	// Units optionally names the unit of a value, keyed like Values.
	Units map[string]string
}

// Result is a normalized row plus the notes produced while building it.
type Result struct {
	Values   map[string]float64
	Warnings []string
}

// Normalizer maps raw payloads onto canonical calculator fields. It is safe
// for concurrent use; per-category indexes are built lazily.
type Normalizer struct {
	mu      sync.RWMutex
	indexes map[emission.CategoryKind]fieldIndex
}

// NewNormalizer returns a ready Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{indexes: make(map[emission.CategoryKind]fieldIndex)}
}

func (n *Normalizer) index(kind emission.CategoryKind) fieldIndex {
	n.mu.RLock()
	idx, ok := n.indexes[kind]
	n.mu.RUnlock()
	if ok {
		return idx
	}
	idx = buildIndex(kind)
	n.mu.Lock()
	n.indexes[kind] = idx
	n.mu.Unlock()
	return idx
}

// Normalize resolves field names against the category of cfg, coerces
// values to numbers, converts mass units to kilograms and stores rates as
// fractions.
//
// Non-numeric values become 0 with a warning. When two raw names resolve to
// the same canonical field the lexically first raw name wins.
func (n *Normalizer) Normalize(cfg emission.ScopeConfig, p Payload) Result {
	idx := n.index(cfg.CategoryKind())
	res := Result{Values: make(map[string]float64, len(p.Values))}

	raws := make([]string, 0, len(p.Values))
	for k := range p.Values {
		raws = append(raws, k)
	}
	sort.Strings(raws)

	units := make(map[string]string, len(p.Units))
	for k, u := range p.Units {
		units[idx.resolve(k)] = u
	}

	for _, raw := range raws {
		field := idx.resolve(raw)
		if field == "" {
			continue
		}
		if _, dup := res.Values[field]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("field %q duplicates %q and was ignored", raw, field))
			continue
		}

		v, ok := emission.ToFloat(p.Values[raw])
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("field %q: non-numeric value coerced to 0", raw))
			v = 0
		}

		switch {
		case percentFields[field]:
			v = greenops.NormalizePercent(v)
		case massFields[field] && strings.TrimSpace(units[field]) != "":
			kg, err := greenops.NormalizeToKg(v, units[field])
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("field %q unit %q: %v; value kept as given", raw, units[field], err))
			} else {
				v = kg
			}
		}
		res.Values[field] = v
	}
	return res
}

// TotalValue sums every value of a normalized row.
func TotalValue(values map[string]float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}
