// Package db defines the storage facade the repositories consume. Consumers
// depend on the narrow sub-interfaces, not on Store.
package db

import (
	"context"
	"time"
)

// Store is the full database facade implemented by a driver.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	VectorSearcher
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
}

// HashStore provides hash-based record operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// KVStore provides simple key-value operations (embedding cache, sha index).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// VectorSearcher runs KNN similarity queries over an FT index.
type VectorSearcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// KNNQuery is the input for a vector similarity search. Filter, when set, is
// an FT.SEARCH pre-filter expression such as `@resume_id:{<id>}`.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Filter       string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score is cosine similarity clamped to
// [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
