package ingest

import (
	"context"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

// ResumeWriter persists resume metadata and resolves content-hash duplicates.
type ResumeWriter interface {
	Create(ctx context.Context, res domain.Resume) error
	FindBySHA(ctx context.Context, sha string) (resumeID string, found bool, err error)
}

// ChunkWriter persists chunk batches into the vector index.
type ChunkWriter interface {
	InsertBatch(ctx context.Context, batch []domain.Chunk) error
}

// BlobStore stores the original source bytes, content-addressed.
type BlobStore interface {
	Put(data []byte, ext string) (sha, url string, err error)
}

// Embedder vectorizes chunk texts in order-preserving batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
