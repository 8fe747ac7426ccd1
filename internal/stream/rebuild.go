// Package stream keeps the running per-field state of activity streams.
//
// A stream is every record sharing client, node, scope identifier and input
// type. Cumulative values depend on every earlier record, so the state is
// always recomputed for the whole stream rather than patched.
package stream

import (
	"maps"
	"slices"
	"sort"

	"github.com/rshade/carbonledger/internal/models"
)

// state is the running per-field state while walking a stream.
type state struct {
	cumulative map[string]float64
	high       map[string]float64
	low        map[string]float64
	total      float64
}

func newState() *state {
	return &state{
		cumulative: map[string]float64{},
		high:       map[string]float64{},
		low:        map[string]float64{},
	}
}

// apply folds one record into the state. Fields are visited in sorted
// order so float sums do not depend on map iteration order.
func (s *state) apply(values map[string]float64) float64 {
	var incoming float64
	for _, field := range slices.Sorted(maps.Keys(values)) {
		v := values[field]
		incoming += v
		s.cumulative[field] += v
		if h, ok := s.high[field]; !ok || v > h {
			s.high[field] = v
		}
		if l, ok := s.low[field]; !ok || v < l {
			s.low[field] = v
		}
	}
	s.total += incoming
	return incoming
}

// Rebuild recomputes the stream state of records in timestamp order. The
// slice is sorted in place and each record's CumulativeValues, HighData,
// LowData, LastEnteredData and Cumulative snapshot are rewritten. The
// cumulative, high and low maps carry every field seen so far in the
// stream; LastEnteredData is the record's own values.
//
// It returns the records whose stream state changed. Running Rebuild a
// second time on its own output changes nothing.
func Rebuild(records []*models.ActivityRecord) []*models.ActivityRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Before(records[j]) })

	var changed []*models.ActivityRecord
	s := newState()
	for i, r := range records {
		incoming := s.apply(r.DataValues)
		snapshot := models.CumulativeSnapshot{
			IncomingTotalValue:   incoming,
			CumulativeTotalValue: s.total,
			EntryCount:           i + 1,
			LastUpdatedAt:        r.Timestamp,
		}

		dirty := !snapshotEqual(r.Cumulative, snapshot) ||
			!maps.Equal(r.CumulativeValues, s.cumulative) ||
			!maps.Equal(r.HighData, s.high) ||
			!maps.Equal(r.LowData, s.low) ||
			!maps.Equal(r.LastEnteredData, r.DataValues)
		if !dirty {
			continue
		}

		r.Cumulative = snapshot
		r.CumulativeValues = maps.Clone(s.cumulative)
		r.HighData = maps.Clone(s.high)
		r.LowData = maps.Clone(s.low)
		r.LastEnteredData = maps.Clone(r.DataValues)
		changed = append(changed, r)
	}
	return changed
}

func snapshotEqual(a, b models.CumulativeSnapshot) bool {
	return a.IncomingTotalValue == b.IncomingTotalValue &&
		a.CumulativeTotalValue == b.CumulativeTotalValue &&
		a.EntryCount == b.EntryCount &&
		a.LastUpdatedAt.Equal(b.LastUpdatedAt)
}
