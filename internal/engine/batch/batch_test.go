package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestNewProcessor(t *testing.T) {
	_, err := NewProcessor[int](0)
	require.ErrorIs(t, err, ErrInvalidBatchSize)
	_, err = NewProcessor[int](MaxBatchSize + 1)
	require.ErrorIs(t, err, ErrInvalidBatchSize)

	p, err := NewProcessor[int](10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.GetBatchSize())
	assert.Equal(t, DefaultBatchSize, NewProcessorWithDefaults[int]().GetBatchSize())
}

func TestProcessor_RunCollectsFailures(t *testing.T) {
	p, err := NewProcessor[int](10)
	require.NoError(t, err)
	p.WithIDFunc(func(i int) string { return fmt.Sprintf("item-%d", i) })

	var calls atomic.Int32
	report, err := p.Run(context.Background(), intItems(25), func(_ context.Context, i int) error {
		calls.Add(1)
		if i%7 == 0 {
			return errors.New("bad item")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int32(25), calls.Load())
	assert.Equal(t, 25, report.Total)
	assert.Equal(t, 21, report.Saved)
	assert.Equal(t, 4, report.Failed)
	assert.True(t, report.Partial())
	require.Len(t, report.Errors, 4)
	assert.Equal(t, ItemError{Index: 7, ID: "item-7", Message: "bad item"}, report.Errors[1])
}

func TestProcessor_BatchBarrier(t *testing.T) {
	p, err := NewProcessor[int](5)
	require.NoError(t, err)

	var mu sync.Mutex
	finished := map[int]int{}
	_, err = p.Run(context.Background(), intItems(15), func(_ context.Context, i int) error {
		batch := i / 5
		mu.Lock()
		defer mu.Unlock()
		// Every item of earlier batches is done before this one starts.
		for b := 0; b < batch; b++ {
			if finished[b] != 5 {
				return fmt.Errorf("batch %d not finished before item %d", b, i)
			}
		}
		finished[batch]++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 5, 1: 5, 2: 5}, finished)
}

func TestProcessor_ConcurrencyLimit(t *testing.T) {
	p, err := NewProcessor[int](20)
	require.NoError(t, err)
	p.WithConcurrency(3)

	var running, peak atomic.Int32
	report, err := p.Run(context.Background(), intItems(20), func(_ context.Context, _ int) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, report.Saved)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestProcessor_Progress(t *testing.T) {
	p, err := NewProcessor[int](10)
	require.NoError(t, err)

	var snaps []ProgressSnapshot
	p.WithProgressCallback(func(pr *Progress) { snaps = append(snaps, pr.Snapshot()) })
	_, err = p.Run(context.Background(), intItems(25), func(_ context.Context, i int) error {
		if i == 0 {
			return errors.New("x")
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, snaps, 3)
	assert.Equal(t, 10, snaps[0].ProcessedItems)
	assert.Equal(t, 1, snaps[0].FailedItems)
	assert.InDelta(t, 100, snaps[2].PercentComplete, 1e-9)
	assert.Equal(t, 3, snaps[2].ProcessedBatches)
}

func TestProcessor_EdgeCases(t *testing.T) {
	p := NewProcessorWithDefaults[int]()

	_, err := p.Run(context.Background(), intItems(3), nil)
	require.ErrorIs(t, err, ErrNilCallback)

	report, err := p.Run(context.Background(), nil, func(context.Context, int) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.False(t, report.Partial())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, intItems(3), func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBatches(t *testing.T) {
	p, err := NewProcessor[int](10)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 10}, {10, 20}, {20, 25}}, p.CalculateBatches(25))
	assert.Empty(t, p.CalculateBatches(0))
}
