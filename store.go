package tiered

import (
	"context"
	"io"
)

// Store is the backend contract shared by the memory slot, the disk slot and
// the network request counter. Values never expire.
type Store interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}

// closeStore releases stores that hold connections. Stores without a Close
// method own nothing.
func closeStore(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
