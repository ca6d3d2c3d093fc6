package db

import (
	"context"
	"time"
)

// Store is the Redis-protocol facade used by the points repository and the embedding cache.
//
//nolint:interfacebloat // facade; consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
	// Replace deletes the key first, so fields missing from Fields do not survive.
	Replace bool
}

// HashStore provides hash operations for stored points.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGet(ctx context.Context, key, field string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides plain string values with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	// SupportsFilterQuery reports whether FT.SEARCH accepts a filter without KNN.
	SupportsFilterQuery() bool
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchKeys(ctx context.Context, q *KeysQuery) ([]string, error)
}
