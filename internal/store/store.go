// Package store persists activity records, flowcharts, summaries and SBTi
// targets. Three interchangeable backends exist: an in-process map store,
// a BadgerDB key-value store and a SQLite document store. Every backend
// encodes documents as JSON and returns copies, so callers may mutate what
// they read.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rshade/carbonledger/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// ActivityQuery selects records of one client. Zero-valued fields do not
// filter. The time range is half-open: From <= Timestamp < To.
type ActivityQuery struct {
	ClientID        string
	NodeID          string
	ScopeIdentifier string
	Status          models.ProcessingStatus
	From            time.Time
	To              time.Time
}

// ActivityStore persists activity records.
type ActivityStore interface {
	PutActivity(ctx context.Context, r *models.ActivityRecord) error
	GetActivity(ctx context.Context, id string) (*models.ActivityRecord, error)
	DeleteActivity(ctx context.Context, id string) error
	// ListStream returns the records of one stream ordered by timestamp,
	// then ID.
	ListStream(ctx context.Context, key models.StreamKey) ([]*models.ActivityRecord, error)
	QueryActivities(ctx context.Context, q ActivityQuery) ([]*models.ActivityRecord, error)
}

// FlowchartStore persists client flowcharts.
type FlowchartStore interface {
	// PutFlowchart stores f. An active flowchart replaces the client's
	// previous active one.
	PutFlowchart(ctx context.Context, f *models.Flowchart) error
	// GetActiveFlowchart returns ErrNotFound when the client has none.
	GetActiveFlowchart(ctx context.Context, clientID string) (*models.Flowchart, error)
}

// SummaryStore persists period summaries.
type SummaryStore interface {
	GetSummary(ctx context.Context, clientID string, p models.Period) (*models.EmissionSummary, error)
	// UpsertSummary writes s keyed by client and period, setting its ID and
	// Metadata.Version to the previous version plus one. It reports
	// whether the summary was created rather than replaced.
	UpsertSummary(ctx context.Context, s *models.EmissionSummary) (bool, error)
	ListSummaries(ctx context.Context, clientID string) ([]*models.EmissionSummary, error)
}

// TargetStore persists SBTi targets.
type TargetStore interface {
	PutTarget(ctx context.Context, t *models.SbtiTarget) error
	GetTarget(ctx context.Context, clientID string, tt models.TargetType) (*models.SbtiTarget, error)
	ListTargets(ctx context.Context, clientID string) ([]*models.SbtiTarget, error)
}

// Store is the full document store.
type Store interface {
	ActivityStore
	FlowchartStore
	SummaryStore
	TargetStore
	Close() error
}

// Open returns the backend named by driver. path is a directory for badger
// and a file (or ":memory:") for sqlite; memory ignores it.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverBadger:
		return OpenBadger(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// Matches reports whether r satisfies q.
func (q ActivityQuery) Matches(r *models.ActivityRecord) bool {
	switch {
	case q.ClientID != "" && r.ClientID != q.ClientID:
		return false
	case q.NodeID != "" && r.NodeID != q.NodeID:
		return false
	case q.ScopeIdentifier != "" && r.ScopeIdentifier != q.ScopeIdentifier:
		return false
	case q.Status != "" && r.ProcessingStatus != q.Status:
		return false
	case !q.From.IsZero() && r.Timestamp.Before(q.From):
		return false
	case !q.To.IsZero() && !r.Timestamp.Before(q.To):
		return false
	}
	return true
}

func inStream(key models.StreamKey, r *models.ActivityRecord) bool {
	return r.Stream() == key
}

func sortRecords(records []*models.ActivityRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Before(records[j]) })
}

func sortSummaries(out []*models.EmissionSummary) {
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
}

func sortTargets(out []*models.SbtiTarget) {
	sort.Slice(out, func(i, j int) bool { return out[i].TargetType < out[j].TargetType })
}

func validateRecord(r *models.ActivityRecord) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("activity record: %w: id", models.ErrMissingField)
	}
	return r.Stream().Validate()
}

func targetKey(clientID string, tt models.TargetType) string {
	return clientID + "|" + string(tt)
}
