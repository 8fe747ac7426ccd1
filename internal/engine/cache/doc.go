// Package cache provides an in-process TTL cache and a read-through cache
// of active flowcharts.
//
// Every calculation resolves its scope configuration from the client's
// active flowchart. Batch recalculation and CSV ingestion hit the same
// flowchart thousands of times in a row, so lookups are cached for a short
// TTL (default 5 minutes) and invalidated whenever a flowchart is saved
// through the cache.
package cache
