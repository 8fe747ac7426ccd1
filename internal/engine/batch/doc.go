// Package batch runs per-item work over large datasets in fixed-size
// batches.
//
// Items inside a batch run in parallel; the next batch starts only after
// every item of the current one has finished. Memory stays O(batch size)
// regardless of dataset size, and a failing item never stops the others:
// failures are collected into the Report.
package batch
