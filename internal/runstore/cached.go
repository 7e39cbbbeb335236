package runstore

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a backend with a fixed-size LRU over individual
// records. Lists always hit the backend: they are rare and the cache
// would have to be invalidated wholesale anyway.
type Cached struct {
	origin  Store
	records *lru.Cache[string, Record]
}

// NewCached wraps origin with an LRU of the given capacity.
func NewCached(origin Store, capacity int) (*Cached, error) {
	records, err := lru.New[string, Record](capacity)
	if err != nil {
		return nil, err
	}
	return &Cached{origin: origin, records: records}, nil
}

func (c *Cached) Save(ctx context.Context, rec Record) error {
	if err := c.origin.Save(ctx, rec); err != nil {
		return err
	}
	c.records.Add(rec.RunID, rec)
	return nil
}

func (c *Cached) Get(ctx context.Context, runID string) (Record, error) {
	id := strings.TrimSpace(runID)
	if rec, ok := c.records.Get(id); ok {
		return rec, nil
	}
	rec, err := c.origin.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	c.records.Add(id, rec)
	return rec, nil
}

func (c *Cached) List(ctx context.Context) ([]Record, error) {
	return c.origin.List(ctx)
}
