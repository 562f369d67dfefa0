package match

import (
	"context"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

// SearchRepository runs nearest-neighbor reads over the chunk index.
type SearchRepository interface {
	// BestPerResume returns, for one query vector, the single strongest chunk
	// per resume.
	BestPerResume(ctx context.Context, vector []float32) (map[string]domain.SimilarityHit, error)

	// TopKPerResume returns up to k chunks per resume, strongest first. A
	// non-empty resumeID restricts the search to that resume.
	TopKPerResume(ctx context.Context, vector []float32, k int, resumeID string) (map[string][]domain.SimilarityHit, error)

	// WeightedTopK ranks resumes by the weighted sum of their best similarity
	// per query vector, paginated by offset/limit.
	WeightedTopK(ctx context.Context, vectors [][]float32, weights []float64, limit, offset int) ([]domain.WeightedResume, error)
}

// ResumeReader bulk-reads resume display metadata.
type ResumeReader interface {
	GetMulti(ctx context.Context, ids []string) (map[string]domain.Resume, error)
}

// ChunkReader bulk-reads chunk evidence (text, page, coordinates).
type ChunkReader interface {
	GetMulti(ctx context.Context, ids []string) (map[string]domain.Chunk, error)
}

// Embedder vectorizes query phrases, order-preserving.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
