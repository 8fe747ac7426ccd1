// Package models defines the persisted documents of the carbon ledger:
// activity records, flowcharts, period summaries, SBTi targets and the
// events published when they change.
//
// Documents are plain structs with JSON tags. Stores encode them with
// goccy/go-json; nothing in this package talks to a store.
package models
