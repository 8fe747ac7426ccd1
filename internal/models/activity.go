package models

import (
	"fmt"
	"time"

	"github.com/rshade/carbonledger/internal/emission"
)

// InputType is the channel an activity record arrived through.
type InputType string

const (
	InputManual InputType = "manual"
	InputAPI    InputType = "API"
	InputIOT    InputType = "IOT"
)

// InputTypes lists the fixed input types in display order.
//
//nolint:gochecknoglobals // Fixed enumeration.
var InputTypes = []InputType{InputManual, InputAPI, InputIOT}

// ParseInputType accepts any casing of the known input types.
func ParseInputType(s string) (InputType, bool) {
	switch normalizeToken(s) {
	case "manual", "csv":
		return InputManual, true
	case "api":
		return InputAPI, true
	case "iot":
		return InputIOT, true
	default:
		return "", false
	}
}

// ProcessingStatus tracks the calculation state of a record.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
)

// CumulativeSnapshot is the stream-level running state at one record.
type CumulativeSnapshot struct {
	IncomingTotalValue   float64   `json:"incomingTotalValue"`
	CumulativeTotalValue float64   `json:"cumulativeTotalValue"`
	EntryCount           int       `json:"entryCount"`
	LastUpdatedAt        time.Time `json:"lastUpdatedAt"`
}

// ActivityRecord is one ingested data point for a node and scope.
type ActivityRecord struct {
	ID               string             `json:"id"`
	ClientID         string             `json:"clientId"`
	NodeID           string             `json:"nodeId"`
	ScopeIdentifier  string             `json:"scopeIdentifier"`
	ScopeType        emission.ScopeType `json:"scopeType"`
	InputType        InputType          `json:"inputType"`
	Source           string             `json:"source,omitempty"`
	Date             string             `json:"date"`
	Time             string             `json:"time"`
	Timestamp        time.Time          `json:"timestamp"`
	DataValues       map[string]float64 `json:"dataValues"`
	CumulativeValues map[string]float64 `json:"cumulativeValues"`
	HighData         map[string]float64 `json:"highData"`
	LowData          map[string]float64 `json:"lowData"`
	LastEnteredData  map[string]float64 `json:"lastEnteredData"`
	Cumulative       CumulativeSnapshot `json:"cumulative"`

	EmissionFactor      emission.FactorSource `json:"emissionFactor,omitempty"`
	CalculatedEmissions emission.Emissions    `json:"calculatedEmissions"`

	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	StatusMessage    string           `json:"statusMessage,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// StreamKey identifies the ordered sequence of records whose cumulative
// values are computed together.
type StreamKey struct {
	ClientID        string    `json:"clientId"`
	NodeID          string    `json:"nodeId"`
	ScopeIdentifier string    `json:"scopeIdentifier"`
	InputType       InputType `json:"inputType"`
}

// Stream returns the key of the stream r belongs to.
func (r *ActivityRecord) Stream() StreamKey {
	return StreamKey{
		ClientID:        r.ClientID,
		NodeID:          r.NodeID,
		ScopeIdentifier: r.ScopeIdentifier,
		InputType:       r.InputType,
	}
}

// String renders the key for logs and lock maps.
func (k StreamKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.ClientID, k.NodeID, k.ScopeIdentifier, k.InputType)
}

// Validate reports a missing key component.
func (k StreamKey) Validate() error {
	switch {
	case k.ClientID == "":
		return fmt.Errorf("stream key: %w: clientId", ErrMissingField)
	case k.NodeID == "":
		return fmt.Errorf("stream key: %w: nodeId", ErrMissingField)
	case k.ScopeIdentifier == "":
		return fmt.Errorf("stream key: %w: scopeIdentifier", ErrMissingField)
	case k.InputType == "":
		return fmt.Errorf("stream key: %w: inputType", ErrMissingField)
	}
	return nil
}

// Before orders records by timestamp, then ID.
func (r *ActivityRecord) Before(o *ActivityRecord) bool {
	if !r.Timestamp.Equal(o.Timestamp) {
		return r.Timestamp.Before(o.Timestamp)
	}
	return r.ID < o.ID
}
