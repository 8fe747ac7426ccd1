// Package jobs queues and runs summary refreshes.
//
// Writing an activity record is split in two phases. The engine persists
// the record and rebuilds its stream synchronously, then schedules a
// summary.refresh job. A worker consumes the job and recomputes every
// period summary containing the record's timestamp. Refreshes are
// idempotent, so at-least-once delivery is enough.
//
// Three schedulers exist: Queue publishes to a watermill topic (in-process
// channel or NATS), Inline refreshes in the caller's goroutine and is used
// by one-shot CLI commands, and the engine accepts a nil scheduler to skip
// refreshes entirely.
package jobs
