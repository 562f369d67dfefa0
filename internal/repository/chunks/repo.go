// Package chunks persists embedded resume chunks as Redis hashes indexed for
// KNN search.
package chunks

import (
	"context"
	"errors"
	"fmt"

	"github.com/krippilippa/matchagig-fast/internal/db"
	"github.com/krippilippa/matchagig-fast/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "chunk:"

	// IndexName is the FT index over chunk hashes.
	IndexName = domain.KeyPrefix + "idx:chunks"
)

// store is the consumer interface for chunk records (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements chunk persistence and bulk metadata reads.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a chunk repository for vectors of the given dimension.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim}
}

// WithHNSW overrides HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the chunk FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("probe chunk index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        IndexName,
		StorageType: db.StorageHash,
		Prefixes:    []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "resume_id", Type: db.IndexFieldTag},
			{Name: "page_number", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create chunk index: %w", err)
	}
	return nil
}

// InsertBatch stores one embedding batch worth of chunks in a single
// pipelined round-trip. Insertion batches mirror embedding batches.
func (r *Repo) InsertBatch(ctx context.Context, batch []domain.Chunk) error {
	if len(batch) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(batch))
	for i, c := range batch {
		items[i] = db.HashSetItem{Key: keyPrefix + c.ID, Fields: buildHashFields(&c)}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunk batch: %w", err)
	}
	return nil
}

// GetMulti bulk-reads chunk metadata (no embeddings) by id. Ids absent from
// the store are missing from the returned map; the caller decides whether
// that degrades or fails.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	if len(ids) == 0 {
		return map[string]domain.Chunk{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("bulk read chunks: %w", err)
	}

	out := make(map[string]domain.Chunk, len(ids))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		out[ids[i]] = parseHashFields(ids[i], fields)
	}
	return out, nil
}
