package store

import (
	"context"
	"sync"

	"github.com/rshade/carbonledger/internal/models"
)

// MemoryStore keeps encoded documents in maps. It is the default backend
// for the CLI and for tests.
type MemoryStore struct {
	mu         sync.RWMutex
	activities map[string][]byte
	flowcharts map[string][]byte // active flowchart per client
	summaries  map[string][]byte
	targets    map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activities: make(map[string][]byte),
		flowcharts: make(map[string][]byte),
		summaries:  make(map[string][]byte),
		targets:    make(map[string][]byte),
	}
}

// PutActivity implements ActivityStore.
func (m *MemoryStore) PutActivity(_ context.Context, r *models.ActivityRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	data, err := encode("activity", r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[r.ID] = data
	return nil
}

// GetActivity implements ActivityStore.
func (m *MemoryStore) GetActivity(_ context.Context, id string) (*models.ActivityRecord, error) {
	m.mu.RLock()
	data, ok := m.activities[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[models.ActivityRecord]("activity", data)
}

// DeleteActivity implements ActivityStore.
func (m *MemoryStore) DeleteActivity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[id]; !ok {
		return ErrNotFound
	}
	delete(m.activities, id)
	return nil
}

// ListStream implements ActivityStore.
func (m *MemoryStore) ListStream(_ context.Context, key models.StreamKey) ([]*models.ActivityRecord, error) {
	out, err := m.scanActivities(func(r *models.ActivityRecord) bool { return inStream(key, r) })
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

// QueryActivities implements ActivityStore.
func (m *MemoryStore) QueryActivities(_ context.Context, q ActivityQuery) ([]*models.ActivityRecord, error) {
	out, err := m.scanActivities(q.Matches)
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) scanActivities(keep func(*models.ActivityRecord) bool) ([]*models.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ActivityRecord
	for _, data := range m.activities {
		r, err := decode[models.ActivityRecord]("activity", data)
		if err != nil {
			return nil, err
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// PutFlowchart implements FlowchartStore. Inactive flowcharts are not
// retained.
func (m *MemoryStore) PutFlowchart(_ context.Context, f *models.Flowchart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !f.IsActive {
		return nil
	}
	data, err := encode("flowchart", f)
	if err != nil {
		return err
	}
	m.flowcharts[f.ClientID] = data
	return nil
}

// GetActiveFlowchart implements FlowchartStore.
func (m *MemoryStore) GetActiveFlowchart(_ context.Context, clientID string) (*models.Flowchart, error) {
	m.mu.RLock()
	data, ok := m.flowcharts[clientID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[models.Flowchart]("flowchart", data)
}

// GetSummary implements SummaryStore.
func (m *MemoryStore) GetSummary(_ context.Context, clientID string, p models.Period) (*models.EmissionSummary, error) {
	m.mu.RLock()
	data, ok := m.summaries[models.SummaryID(clientID, p)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[models.EmissionSummary]("summary", data)
}

// UpsertSummary implements SummaryStore.
func (m *MemoryStore) UpsertSummary(_ context.Context, s *models.EmissionSummary) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = models.SummaryID(s.ClientID, s.Period)
	created := true
	s.Metadata.Version = 1
	if prev, ok := m.summaries[s.ID]; ok {
		old, err := decode[models.EmissionSummary]("summary", prev)
		if err != nil {
			return false, err
		}
		created = false
		s.Metadata.Version = old.Metadata.Version + 1
	}
	data, err := encode("summary", s)
	if err != nil {
		return false, err
	}
	m.summaries[s.ID] = data
	return created, nil
}

// ListSummaries implements SummaryStore.
func (m *MemoryStore) ListSummaries(_ context.Context, clientID string) ([]*models.EmissionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.EmissionSummary
	for _, data := range m.summaries {
		s, err := decode[models.EmissionSummary]("summary", data)
		if err != nil {
			return nil, err
		}
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	sortSummaries(out)
	return out, nil
}

// PutTarget implements TargetStore.
func (m *MemoryStore) PutTarget(_ context.Context, t *models.SbtiTarget) error {
	data, err := encode("target", t)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[targetKey(t.ClientID, t.TargetType)] = data
	return nil
}

// GetTarget implements TargetStore.
func (m *MemoryStore) GetTarget(_ context.Context, clientID string, tt models.TargetType) (*models.SbtiTarget, error) {
	m.mu.RLock()
	data, ok := m.targets[targetKey(clientID, tt)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[models.SbtiTarget]("target", data)
}

// ListTargets implements TargetStore.
func (m *MemoryStore) ListTargets(_ context.Context, clientID string) ([]*models.SbtiTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.SbtiTarget
	for _, data := range m.targets {
		t, err := decode[models.SbtiTarget]("target", data)
		if err != nil {
			return nil, err
		}
		if t.ClientID == clientID {
			out = append(out, t)
		}
	}
	sortTargets(out)
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
