package cache

import (
	"context"
	"time"

	"github.com/rshade/carbonledger/internal/metrics"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/store"
)

// FlowchartCache is a read-through cache in front of a FlowchartStore. It
// implements store.FlowchartStore itself, so it can replace the store
// wherever flowcharts are read. Misses (store.ErrNotFound) are not cached.
type FlowchartCache struct {
	next  store.FlowchartStore
	cache *TTLCache[string, *models.Flowchart]
}

var _ store.FlowchartStore = (*FlowchartCache)(nil)

// NewFlowchartCache wraps next with a cache of the given TTL.
func NewFlowchartCache(next store.FlowchartStore, ttl time.Duration) *FlowchartCache {
	return &FlowchartCache{next: next, cache: NewTTLCache[string, *models.Flowchart](ttl)}
}

// GetActiveFlowchart implements store.FlowchartStore. Callers must not
// mutate the returned flowchart.
func (c *FlowchartCache) GetActiveFlowchart(ctx context.Context, clientID string) (*models.Flowchart, error) {
	if f, ok := c.cache.Get(clientID); ok {
		metrics.RecordCacheLookup(true)
		return f, nil
	}
	if c.cache.Enabled() {
		metrics.RecordCacheLookup(false)
	}

	f, err := c.next.GetActiveFlowchart(ctx, clientID)
	if err != nil {
		return nil, err
	}
	f.NormalizeScopes()
	c.cache.Set(clientID, f)
	return f, nil
}

// PutFlowchart implements store.FlowchartStore and drops the cached entry.
func (c *FlowchartCache) PutFlowchart(ctx context.Context, f *models.Flowchart) error {
	c.cache.Delete(f.ClientID)
	return c.next.PutFlowchart(ctx, f)
}

// Invalidate drops the cached flowchart of clientID.
func (c *FlowchartCache) Invalidate(clientID string) {
	c.cache.Delete(clientID)
}
