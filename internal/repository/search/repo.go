// Package search implements the nearest-neighbor read operations over the
// chunk FT index: best match per resume, top-k per resume, and weighted top-k
// across multiple query vectors.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/krippilippa/matchagig-fast/internal/db"
	"github.com/krippilippa/matchagig-fast/internal/domain"
	"github.com/krippilippa/matchagig-fast/internal/repository/chunks"
)

// store is the consumer interface for KNN queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo groups raw chunk-level KNN hits into per-resume results. RediSearch
// has no per-group reduction, so each query oversamples chunk candidates and
// reduces client-side; recall beyond maxCandidates chunks is not guaranteed.
type Repo struct {
	store         store
	maxCandidates int
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s, maxCandidates: 4096}
}

// WithMaxCandidates overrides the per-query chunk oversample.
func (r *Repo) WithMaxCandidates(n int) *Repo {
	if n > 0 {
		r.maxCandidates = n
	}
	return r
}

// BestPerResume returns, for one query vector, the single best-matching chunk
// of every resume that surfaced among the candidates.
func (r *Repo) BestPerResume(ctx context.Context, vector []float32) (map[string]domain.SimilarityHit, error) {
	entries, err := r.knn(ctx, vector, r.maxCandidates, "")
	if err != nil {
		return nil, err
	}

	best := make(map[string]domain.SimilarityHit)
	for _, e := range entries {
		hit := entryToHit(e)
		if hit.ResumeID == "" {
			continue
		}
		if cur, ok := best[hit.ResumeID]; !ok || hit.Similarity > cur.Similarity {
			hit.Rank = 1
			best[hit.ResumeID] = hit
		}
	}
	return best, nil
}

// TopKPerResume returns, for one query vector, up to k chunks per resume
// ranked strongest first (rank 1 = best). A non-empty resumeID restricts the
// search to that single resume.
func (r *Repo) TopKPerResume(
	ctx context.Context, vector []float32, k int, resumeID string,
) (map[string][]domain.SimilarityHit, error) {
	filter := ""
	limit := r.maxCandidates
	if resumeID != "" {
		filter = "@resume_id:{" + escapeTag(resumeID) + "}"
		limit = k
	}

	entries, err := r.knn(ctx, vector, limit, filter)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.SimilarityHit)
	for _, e := range entries {
		hit := entryToHit(e)
		if hit.ResumeID == "" {
			continue
		}
		grouped[hit.ResumeID] = append(grouped[hit.ResumeID], hit)
	}

	for id, hits := range grouped {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
		if len(hits) > k {
			hits = hits[:k]
		}
		for i := range hits {
			hits[i].Rank = i + 1
		}
		grouped[id] = hits
	}
	return grouped, nil
}

// WeightedTopK scores resumes across multiple query vectors at once: each
// resume's score is the weighted sum of its best similarity per vector.
// Results are ranked descending and paginated by offset/limit; Rank is the
// absolute 1-based position including the offset.
func (r *Repo) WeightedTopK(
	ctx context.Context, vectors [][]float32, weights []float64, limit, offset int,
) ([]domain.WeightedResume, error) {
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("vectors/weights length mismatch: %d vs %d", len(vectors), len(weights))
	}

	perVector := make([]map[string]domain.SimilarityHit, len(vectors))
	for i, vec := range vectors {
		best, err := r.BestPerResume(ctx, vec)
		if err != nil {
			return nil, err
		}
		perVector[i] = best
	}

	// union of resumes touched by any vector, in first-seen order for a
	// deterministic stable sort
	var order []string
	seen := make(map[string]struct{})
	for _, best := range perVector {
		ids := make([]string, 0, len(best))
		for id := range best {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				order = append(order, id)
			}
		}
	}

	rows := make([]domain.WeightedResume, 0, len(order))
	for _, id := range order {
		row := domain.WeightedResume{
			ResumeID:     id,
			PillSims:     make([]float64, len(vectors)),
			PillChunkIDs: make([]string, len(vectors)),
		}
		for i, best := range perVector {
			if hit, ok := best[id]; ok {
				row.PillSims[i] = hit.Similarity
				row.PillChunkIDs[i] = hit.ChunkID
				row.WeightedScore += hit.Similarity * weights[i]
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].WeightedScore > rows[j].WeightedScore })
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []domain.WeightedResume{}, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *Repo) knn(ctx context.Context, vector []float32, k int, filter string) ([]db.SearchEntry, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    chunks.IndexName,
		Vector:       vector,
		K:            k,
		Filter:       filter,
		ReturnFields: []string{"resume_id", "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn query: %w", domain.ErrSearchProviderError, err)
	}
	if res == nil {
		return nil, nil
	}
	return res.Entries, nil
}

func entryToHit(e db.SearchEntry) domain.SimilarityHit {
	return domain.SimilarityHit{
		ResumeID:   e.Fields["resume_id"],
		ChunkID:    chunkIDFromKey(e.Key),
		Similarity: e.Score,
	}
}

// chunkIDFromKey strips the storage key prefix from an FT.SEARCH result key.
func chunkIDFromKey(key string) string {
	const prefix = domain.KeyPrefix + "chunk:"
	return strings.TrimPrefix(key, prefix)
}

// escapeTag escapes RediSearch TAG special characters in a filter value.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}
