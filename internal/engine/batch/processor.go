package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the default number of items per batch.
	DefaultBatchSize = 100

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
)

// ItemFunc processes one item.
type ItemFunc[T any] func(ctx context.Context, item T) error

// IDFunc names an item in error reports.
type IDFunc[T any] func(item T) string

// ProgressCallback is an optional callback invoked after each batch.
type ProgressCallback func(progress *Progress)

// ItemError is one failed item.
type ItemError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Report summarizes a run.
type Report struct {
	Total  int         `json:"total"`
	Saved  int         `json:"saved"`
	Failed int         `json:"failed"`
	Errors []ItemError `json:"errors,omitempty"`
}

// Partial reports whether some but not all items failed.
func (r *Report) Partial() bool {
	return r.Failed > 0 && r.Saved > 0
}

// Processor splits items into fixed-size batches.
type Processor[T any] struct {
	batchSize   int
	concurrency int
	idFunc      IDFunc[T]
	onProgress  ProgressCallback
}

// NewProcessor creates a processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return &Processor[T]{batchSize: batchSize}, nil
}

// NewProcessorWithDefaults creates a processor with the default batch size.
func NewProcessorWithDefaults[T any]() *Processor[T] {
	return &Processor[T]{batchSize: DefaultBatchSize}
}

// WithProgressCallback sets a progress callback.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// WithConcurrency caps the goroutines inside one batch. Zero or negative
// means one goroutine per item.
func (p *Processor[T]) WithConcurrency(n int) *Processor[T] {
	p.concurrency = n
	return p
}

// WithIDFunc sets how items are named in the report.
func (p *Processor[T]) WithIDFunc(fn IDFunc[T]) *Processor[T] {
	p.idFunc = fn
	return p
}

// GetBatchSize returns the configured batch size.
func (p *Processor[T]) GetBatchSize() int {
	return p.batchSize
}

// Run calls fn for every item. The returned error is non-nil only when fn
// is nil or ctx is cancelled between batches; item failures are in the
// report. An empty slice yields an empty report.
func (p *Processor[T]) Run(ctx context.Context, items []T, fn ItemFunc[T]) (*Report, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	report := &Report{Total: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds), p.batchSize)

	for _, b := range bounds {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start, end := b[0], b[1]
		errs := make([]error, end-start)
		var g errgroup.Group
		if p.concurrency > 0 {
			g.SetLimit(p.concurrency)
		}
		for i := start; i < end; i++ {
			g.Go(func() error {
				errs[i-start] = fn(ctx, items[i])
				return nil
			})
		}
		_ = g.Wait()

		failed := 0
		for off, err := range errs {
			if err == nil {
				report.Saved++
				continue
			}
			failed++
			report.Failed++
			ie := ItemError{Index: start + off, Message: err.Error()}
			if p.idFunc != nil {
				ie.ID = p.idFunc(items[start+off])
			}
			report.Errors = append(report.Errors, ie)
		}

		progress.AddProcessed(end-start, failed)
		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}
	return report, nil
}

// CalculateBatches returns the [start, end) bounds of every batch.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := p.calculateTotalBatches(totalItems)
	batches := make([][2]int, totalBatches)

	for i := range totalBatches {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		batches[i] = [2]int{start, end}
	}
	return batches
}

// calculateTotalBatches calculates the number of batches needed for the given item count.
func (p *Processor[T]) calculateTotalBatches(totalItems int) int {
	batches := totalItems / p.batchSize
	if totalItems%p.batchSize > 0 {
		batches++
	}
	return batches
}
