package tiered

import (
	"context"
	"fmt"
	"time"
)

const counterKey = "network:requests"

// Origin produces records for the network tier. Fetch never reports absent:
// it either returns a record or fails. The resolver stamps FetchedAt with its
// own clock, so staleness is always measured against one time source.
type Origin interface {
	Fetch(ctx context.Context) (Record, error)
}

// OriginFunc adapts a function to the Origin interface.
type OriginFunc func(ctx context.Context) (Record, error)

// Fetch implements Origin.
func (f OriginFunc) Fetch(ctx context.Context) (Record, error) {
	return f(ctx)
}

// CounterOrigin simulates a remote server: every Fetch bumps a request counter
// kept in its store and answers "Server Response #N".
type CounterOrigin struct {
	store Store
	now   func() time.Time
}

// NewCounterOrigin returns an origin counting requests in store. A nil store
// keeps the counter in process memory.
func NewCounterOrigin(store Store) *CounterOrigin {
	if store == nil {
		store = newMemoryStore()
	}
	return &CounterOrigin{store: store, now: time.Now}
}

// Fetch implements Origin.
func (o *CounterOrigin) Fetch(ctx context.Context) (Record, error) {
	n, err := o.store.Increment(ctx, counterKey, 1)
	if err != nil {
		return Record{}, fmt.Errorf("increment request counter: %w", err)
	}
	return NewRecord(fmt.Sprintf("Server Response #%d", n), o.now()), nil
}

// Close releases the counter store.
func (o *CounterOrigin) Close() error {
	return closeStore(o.store)
}

// Reset sets the request counter back to zero.
func (o *CounterOrigin) Reset(ctx context.Context) error {
	return o.store.Delete(ctx, counterKey)
}
