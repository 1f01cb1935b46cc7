package ostinato

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching query results. Implement it with your
// preferred backing store (Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies one rendered query for caching purposes.
type CacheKey struct {
	Table     string
	Dialect   string
	Statement string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Dialect + ":" + k.Statement
}

// EncodeRows serialises normalised result rows for cache storage.
func EncodeRows(rows []map[string]any) ([]byte, error) {
	return msgpack.Marshal(rows)
}

// DecodeRows deserialises rows previously written with EncodeRows.
func DecodeRows(data []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
