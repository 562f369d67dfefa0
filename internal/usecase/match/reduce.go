package match

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

// variantPlan maps each pill to its embedded query phrases. Phrases are
// deduplicated across the whole request: a phrase shared by two pills is
// embedded and queried once, then reduced per pill independently.
type variantPlan struct {
	phrases []string
	vectors [][]float32

	// pillPhrases holds, per pill, the phrase indexes of its variants in
	// discovery order; index 0 is always the pill text itself.
	pillPhrases [][]int
}

// pillVector returns the embedding of the pill's own text.
func (p *variantPlan) pillVector(pill int) []float32 {
	return p.vectors[p.pillPhrases[pill][0]]
}

// embedVariants expands every pill into variants, deduplicates phrases across
// the request and embeds them in one batch call. Multi-result and weighted
// modes skip synonym expansion and query the pill text only.
func (s *Service) embedVariants(ctx context.Context, q Query) (*variantPlan, error) {
	expandSynonyms := !q.Weighted && q.ResultsPerPill <= 1 && q.ResumeID == ""

	plan := &variantPlan{pillPhrases: make([][]int, len(q.Pills))}
	index := make(map[string]int)

	for i, pill := range q.Pills {
		var synonyms []string
		if expandSynonyms && i < len(q.Synonyms) {
			synonyms = q.Synonyms[i]
		}

		for _, v := range domain.ExpandVariants(i, pill.Text, synonyms) {
			idx, ok := index[v.Text]
			if !ok {
				idx = len(plan.phrases)
				index[v.Text] = idx
				plan.phrases = append(plan.phrases, v.Text)
			}
			plan.pillPhrases[i] = append(plan.pillPhrases[i], idx)
		}
		if len(plan.pillPhrases[i]) == 0 {
			return nil, fmt.Errorf("pill %d has no usable variants: %w", i, domain.ErrValidation)
		}
	}

	res, err := s.embedder.BatchEmbed(ctx, plan.phrases)
	if err != nil {
		return nil, fmt.Errorf("embed query variants: %w", err)
	}
	plan.vectors = res.Embeddings
	return plan, nil
}

// lookupBestPerResume runs one best-per-resume lookup per distinct phrase.
// Lookups are read-only and independent, so they run on a bounded pool; any
// failure cancels the rest.
func (s *Service) lookupBestPerResume(ctx context.Context, plan *variantPlan) ([]map[string]domain.SimilarityHit, error) {
	results := make([]map[string]domain.SimilarityHit, len(plan.phrases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range plan.phrases {
		i := i
		g.Go(func() error {
			best, err := s.search.BestPerResume(gctx, plan.vectors[i])
			if err != nil {
				return fmt.Errorf("lookup %q: %w", plan.phrases[i], err)
			}
			results[i] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// lookupTopKPerResume runs one top-k lookup per pill (single variant each).
func (s *Service) lookupTopKPerResume(ctx context.Context, q Query, plan *variantPlan) ([]map[string][]domain.SimilarityHit, error) {
	results := make([]map[string][]domain.SimilarityHit, len(q.Pills))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range q.Pills {
		i := i
		g.Go(func() error {
			hits, err := s.search.TopKPerResume(gctx, plan.pillVector(i), q.ResultsPerPill, q.ResumeID)
			if err != nil {
				return fmt.Errorf("lookup %q: %w", q.Pills[i].Text, err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reduceWinners picks, per pill and resume, the strongest hit across the
// pill's variants. Ties keep the earlier variant in discovery order.
func reduceWinners(pills []domain.Pill, plan *variantPlan, hits []map[string]domain.SimilarityHit) []map[string]domain.Winner {
	winners := make([]map[string]domain.Winner, len(pills))
	for i := range pills {
		w := make(map[string]domain.Winner)
		for _, phraseIdx := range plan.pillPhrases[i] {
			for resumeID, hit := range hits[phraseIdx] {
				cur, ok := w[resumeID]
				if !ok || hit.Similarity > cur.MaxSim {
					w[resumeID] = domain.Winner{
						ResumeID:    resumeID,
						MaxSim:      hit.Similarity,
						BestChunkID: hit.ChunkID,
						Variant:     plan.phrases[phraseIdx],
					}
				}
			}
		}
		winners[i] = w
	}
	return winners
}

// resumeUnion collects every resume id touched by any pill, in a deterministic
// first-seen order (pills in request order, ids sorted within each pill).
func resumeUnion(perPill func(pill int) []string, pillCount int) []string {
	var order []string
	seen := make(map[string]struct{})
	for i := 0; i < pillCount; i++ {
		ids := perPill(i)
		sort.Strings(ids)
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				order = append(order, id)
			}
		}
	}
	return order
}
