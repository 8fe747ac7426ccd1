package models

import "time"

// Event types published through the notification sink.
const (
	EventSummaryCreated    = "summary.created"
	EventSummaryUpdated    = "summary.updated"
	EventActivityProcessed = "activity.processed"
	EventActivityDeleted   = "activity.deleted"
	EventStreamRebuilt     = "stream.rebuilt"
	EventTargetUpdated     = "target.updated"
)

// Event is a fire-and-forget notification about a document change.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	ClientID  string         `json:"clientId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
