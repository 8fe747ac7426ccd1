package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/rshade/carbonledger/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	activityKeyPrefix       = "activity:"
	activityClientKeyPrefix = "activity_client:"
	flowchartKeyPrefix      = "flowchart:"
	summaryKeyPrefix        = "summary:"
	targetKeyPrefix         = "target:"
)

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an open database. The store owns db and closes it
// on Close.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func activityClientKey(clientID, id string) []byte {
	return []byte(activityClientKeyPrefix + clientID + ":" + id)
}

// getDoc reads key into a freshly decoded T, mapping a missing key to
// ErrNotFound.
func getDoc[T any](txn *badger.Txn, kind string, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	var out *T
	err = item.Value(func(val []byte) error {
		var decErr error
		out, decErr = decode[T](kind, val)
		return decErr
	})
	return out, err
}

// scanDocs decodes every value under prefix.
func scanDocs[T any](txn *badger.Txn, kind string, prefix []byte) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			v, err := decode[T](kind, val)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// clientActivities resolves the client index to records.
func clientActivities(txn *badger.Txn, clientID string) ([]*models.ActivityRecord, error) {
	prefix := []byte(activityClientKeyPrefix + clientID + ":")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out := make([]*models.ActivityRecord, 0, len(ids))
	for _, id := range ids {
		r, err := getDoc[models.ActivityRecord](txn, "activity", []byte(activityKeyPrefix+id))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// PutActivity implements ActivityStore.
func (s *BadgerStore) PutActivity(_ context.Context, r *models.ActivityRecord) error {
	if err := validateRecord(r); err != nil {
		return err
	}
	data, err := encode("activity", r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(activityKeyPrefix+r.ID), data); err != nil {
			return fmt.Errorf("set activity: %w", err)
		}
		if err := txn.Set(activityClientKey(r.ClientID, r.ID), []byte(r.ID)); err != nil {
			return fmt.Errorf("set client index: %w", err)
		}
		return nil
	})
}

// GetActivity implements ActivityStore.
func (s *BadgerStore) GetActivity(_ context.Context, id string) (*models.ActivityRecord, error) {
	var out *models.ActivityRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getDoc[models.ActivityRecord](txn, "activity", []byte(activityKeyPrefix+id))
		return err
	})
	return out, err
}

// DeleteActivity implements ActivityStore.
func (s *BadgerStore) DeleteActivity(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(activityKeyPrefix + id)
		r, err := getDoc[models.ActivityRecord](txn, "activity", key)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		if err := txn.Delete(activityClientKey(r.ClientID, id)); err != nil {
			return fmt.Errorf("delete client index: %w", err)
		}
		return nil
	})
}

// ListStream implements ActivityStore.
func (s *BadgerStore) ListStream(_ context.Context, key models.StreamKey) ([]*models.ActivityRecord, error) {
	var out []*models.ActivityRecord
	err := s.db.View(func(txn *badger.Txn) error {
		all, err := clientActivities(txn, key.ClientID)
		if err != nil {
			return err
		}
		for _, r := range all {
			if inStream(key, r) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stream %s: %w", key, err)
	}
	sortRecords(out)
	return out, nil
}

// QueryActivities implements ActivityStore. A query without ClientID scans
// every record.
func (s *BadgerStore) QueryActivities(_ context.Context, q ActivityQuery) ([]*models.ActivityRecord, error) {
	var out []*models.ActivityRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var all []*models.ActivityRecord
		var err error
		if q.ClientID != "" {
			all, err = clientActivities(txn, q.ClientID)
		} else {
			all, err = scanDocs[models.ActivityRecord](txn, "activity", []byte(activityKeyPrefix))
		}
		if err != nil {
			return err
		}
		for _, r := range all {
			if q.Matches(r) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	sortRecords(out)
	return out, nil
}

// PutFlowchart implements FlowchartStore.
func (s *BadgerStore) PutFlowchart(_ context.Context, f *models.Flowchart) error {
	if !f.IsActive {
		return nil
	}
	data, err := encode("flowchart", f)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(flowchartKeyPrefix+f.ClientID), data)
	})
}

// GetActiveFlowchart implements FlowchartStore.
func (s *BadgerStore) GetActiveFlowchart(_ context.Context, clientID string) (*models.Flowchart, error) {
	var out *models.Flowchart
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getDoc[models.Flowchart](txn, "flowchart", []byte(flowchartKeyPrefix+clientID))
		return err
	})
	return out, err
}

// GetSummary implements SummaryStore.
func (s *BadgerStore) GetSummary(_ context.Context, clientID string, p models.Period) (*models.EmissionSummary, error) {
	var out *models.EmissionSummary
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getDoc[models.EmissionSummary](txn, "summary", []byte(summaryKeyPrefix+models.SummaryID(clientID, p)))
		return err
	})
	return out, err
}

// UpsertSummary implements SummaryStore. The version read and the write
// share one transaction; a conflicting writer makes badger return
// ErrConflict.
func (s *BadgerStore) UpsertSummary(_ context.Context, sum *models.EmissionSummary) (bool, error) {
	sum.ID = models.SummaryID(sum.ClientID, sum.Period)
	key := []byte(summaryKeyPrefix + sum.ID)
	created := true
	err := s.db.Update(func(txn *badger.Txn) error {
		sum.Metadata.Version = 1
		prev, err := getDoc[models.EmissionSummary](txn, "summary", key)
		switch {
		case err == nil:
			created = false
			sum.Metadata.Version = prev.Metadata.Version + 1
		case !errors.Is(err, ErrNotFound):
			return err
		}
		data, err := encode("summary", sum)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return false, fmt.Errorf("upsert summary %s: %w", sum.ID, err)
	}
	return created, nil
}

// ListSummaries implements SummaryStore.
func (s *BadgerStore) ListSummaries(_ context.Context, clientID string) ([]*models.EmissionSummary, error) {
	var out []*models.EmissionSummary
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = scanDocs[models.EmissionSummary](txn, "summary", []byte(summaryKeyPrefix+clientID+"|"))
		return err
	})
	if err != nil {
		return nil, err
	}
	sortSummaries(out)
	return out, nil
}

// PutTarget implements TargetStore.
func (s *BadgerStore) PutTarget(_ context.Context, t *models.SbtiTarget) error {
	data, err := encode("target", t)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(targetKeyPrefix+targetKey(t.ClientID, t.TargetType)), data)
	})
}

// GetTarget implements TargetStore.
func (s *BadgerStore) GetTarget(_ context.Context, clientID string, tt models.TargetType) (*models.SbtiTarget, error) {
	var out *models.SbtiTarget
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getDoc[models.SbtiTarget](txn, "target", []byte(targetKeyPrefix+targetKey(clientID, tt)))
		return err
	})
	return out, err
}

// ListTargets implements TargetStore.
func (s *BadgerStore) ListTargets(_ context.Context, clientID string) ([]*models.SbtiTarget, error) {
	var out []*models.SbtiTarget
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = scanDocs[models.SbtiTarget](txn, "target", []byte(targetKeyPrefix+clientID+"|"))
		return err
	})
	if err != nil {
		return nil, err
	}
	sortTargets(out)
	return out, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
