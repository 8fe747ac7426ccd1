package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func record(id string, hour int, values map[string]float64) *models.ActivityRecord {
	return &models.ActivityRecord{
		ID:               id,
		ClientID:         "client-1",
		NodeID:           "node-1",
		ScopeIdentifier:  "boiler",
		ScopeType:        emission.Scope1,
		InputType:        models.InputManual,
		Timestamp:        base.Add(time.Duration(hour) * time.Hour),
		DataValues:       values,
		ProcessingStatus: models.StatusProcessed,
	}
}

func TestRebuild_RunningState(t *testing.T) {
	// Deliberately out of order.
	records := []*models.ActivityRecord{
		record("c", 2, map[string]float64{"fuel": 5, "hours": 1}),
		record("a", 0, map[string]float64{"fuel": 10}),
		record("b", 1, map[string]float64{"fuel": 2}),
	}

	changed := Rebuild(records)
	require.Len(t, changed, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{records[0].ID, records[1].ID, records[2].ID})

	last := records[2]
	assert.Equal(t, map[string]float64{"fuel": 17, "hours": 1}, last.CumulativeValues)
	assert.Equal(t, map[string]float64{"fuel": 10, "hours": 1}, last.HighData)
	assert.Equal(t, map[string]float64{"fuel": 2, "hours": 1}, last.LowData)
	assert.Equal(t, map[string]float64{"fuel": 5, "hours": 1}, last.LastEnteredData)
	assert.Equal(t, models.CumulativeSnapshot{
		IncomingTotalValue:   6,
		CumulativeTotalValue: 18,
		EntryCount:           3,
		LastUpdatedAt:        last.Timestamp,
	}, last.Cumulative)

	second := records[1]
	assert.Equal(t, map[string]float64{"fuel": 12}, second.CumulativeValues)
	assert.Equal(t, map[string]float64{"fuel": 2}, second.LowData)
	assert.Equal(t, 2, second.Cumulative.EntryCount)
}

func TestRebuild_LastEnteredIsOwnValues(t *testing.T) {
	records := []*models.ActivityRecord{
		record("a", 0, map[string]float64{"fuel": 10, "hours": 4}),
		record("b", 1, map[string]float64{"fuel": 3}),
	}
	Rebuild(records)

	later := records[1]
	assert.Equal(t, map[string]float64{"fuel": 3}, later.LastEnteredData)
	assert.Equal(t, map[string]float64{"fuel": 13, "hours": 4}, later.CumulativeValues)
	assert.Equal(t, map[string]float64{"fuel": 10, "hours": 4}, later.HighData)

	later.LastEnteredData["fuel"] = 99
	assert.InDelta(t, 3, later.DataValues["fuel"], 1e-12, "last-entered is a copy")
	assert.Len(t, Rebuild(records), 1, "a drifted last-entered map is rewritten")
	assert.Equal(t, map[string]float64{"fuel": 3}, later.LastEnteredData)
}

func TestRebuild_CumulativeEqualsSumOfIncoming(t *testing.T) {
	records := make([]*models.ActivityRecord, 0, 20)
	for i := range 20 {
		records = append(records, record(string(rune('a'+i)), i, map[string]float64{
			"x": float64(i) * 1.1,
			"y": float64(20 - i),
		}))
	}
	Rebuild(records)

	var running float64
	for i, r := range records {
		running += r.Cumulative.IncomingTotalValue
		assert.InDelta(t, running, r.Cumulative.CumulativeTotalValue, 1e-9)
		assert.Equal(t, i+1, r.Cumulative.EntryCount)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	records := []*models.ActivityRecord{
		record("a", 0, map[string]float64{"fuel": 10.1, "gas": 0.3}),
		record("b", 0, map[string]float64{"fuel": 2.7}),
		record("c", 3, map[string]float64{"gas": 7.9}),
	}
	Rebuild(records)
	first, err := json.Marshal(records)
	require.NoError(t, err)

	assert.Empty(t, Rebuild(records))
	second, err := json.Marshal(records)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRebuild_TimestampTieBreaksOnID(t *testing.T) {
	records := []*models.ActivityRecord{
		record("b", 0, map[string]float64{"v": 1}),
		record("a", 0, map[string]float64{"v": 2}),
	}
	Rebuild(records)
	assert.Equal(t, "a", records[0].ID)
	assert.InDelta(t, 2, records[0].Cumulative.CumulativeTotalValue, 1e-12)
}

func TestRebuild_Empty(t *testing.T) {
	assert.Empty(t, Rebuild(nil))
}

type recalcFunc func(ctx context.Context, r *models.ActivityRecord) error

func (f recalcFunc) RecalculateRecord(ctx context.Context, r *models.ActivityRecord) error {
	return f(ctx, r)
}

func seed(t *testing.T, s store.ActivityStore, records ...*models.ActivityRecord) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, s.PutActivity(context.Background(), r))
	}
}

func TestTracker_RebuildStreamAfterDelete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	rec := &notify.Recorder{}
	tr := NewTracker(s, WithSink(rec))

	a := record("a", 0, map[string]float64{"fuel": 1})
	b := record("b", 1, map[string]float64{"fuel": 2})
	c := record("c", 2, map[string]float64{"fuel": 3})
	seed(t, s, a, b, c)

	res, err := tr.RebuildStream(ctx, a.Stream())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 3, res.Changed)

	got, err := s.GetActivity(ctx, "c")
	require.NoError(t, err)
	assert.InDelta(t, 6, got.Cumulative.CumulativeTotalValue, 1e-12)

	require.NoError(t, s.DeleteActivity(ctx, "b"))
	res, err = tr.RebuildStream(ctx, a.Stream())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Changed)

	got, err = s.GetActivity(ctx, "c")
	require.NoError(t, err)
	assert.InDelta(t, 4, got.Cumulative.CumulativeTotalValue, 1e-12)
	assert.Equal(t, 2, got.Cumulative.EntryCount)

	assert.Equal(t, []string{models.EventStreamRebuilt, models.EventStreamRebuilt}, rec.Types())
}

func TestTracker_Recalculates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seen := 0
	tr := NewTracker(s, WithRecalculator(recalcFunc(func(_ context.Context, r *models.ActivityRecord) error {
		seen++
		if r.ID == "b" {
			return errors.New("no factor")
		}
		r.CalculatedEmissions = emission.Emissions{
			Incoming:   emission.Bucket{"fuel": {CO2e: r.DataValues["fuel"]}},
			Cumulative: emission.Bucket{"fuel": {CO2e: r.CumulativeValues["fuel"]}},
		}
		return nil
	})))

	a := record("a", 0, map[string]float64{"fuel": 1})
	b := record("b", 1, map[string]float64{"fuel": 2})
	seed(t, s, a, b)

	res, err := tr.RebuildStream(ctx, a.Stream())
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
	assert.Equal(t, 1, res.Recalculated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "b", res.Errors[0].RecordID)

	got, err := s.GetActivity(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 1, got.CalculatedEmissions.Cumulative["fuel"].CO2e, 1e-12)
}

func TestTracker_InvalidKey(t *testing.T) {
	tr := NewTracker(store.NewMemoryStore())
	_, err := tr.RebuildStream(context.Background(), models.StreamKey{ClientID: "c"})
	require.ErrorIs(t, err, models.ErrMissingField)
}

func TestTracker_ConcurrentRebuildsConverge(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	tr := NewTracker(s)
	var records []*models.ActivityRecord
	for i := range 10 {
		records = append(records, record(string(rune('a'+i)), i, map[string]float64{"v": 1}))
	}
	seed(t, s, records...)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.RebuildStream(ctx, records[0].Stream())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.ListStream(ctx, records[0].Stream())
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.InDelta(t, 10, got[9].Cumulative.CumulativeTotalValue, 1e-12)
}
