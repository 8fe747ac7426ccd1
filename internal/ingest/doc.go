// Package ingest turns raw activity payloads into the canonical numeric rows
// the scope calculators read.
//
// Payloads arrive from the API, IoT devices, manual entry and CSV files with
// inconsistent field names ("fuel_consumed", "FuelConsumed", "fuel"),
// optional per-field mass units and rates written either as percentages or
// fractions. The Normalizer resolves all three against the category of the
// target scope configuration. Timestamps are resolved by ParseTimestamp.
package ingest
