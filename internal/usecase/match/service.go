// Package match scores resumes against weighted query pills and assembles the
// ranked resume score matrix.
package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/krippilippa/matchagig-fast/internal/domain"
	"github.com/krippilippa/matchagig-fast/internal/logger"
)

// Query is one matching request. Synonyms is aligned by pill index; identity
// is positional so two pills sharing the same text never merge.
type Query struct {
	Pills    []domain.Pill
	Synonyms [][]string

	// TopKResumes/Offset paginate the ranked rows.
	TopKResumes int
	Offset      int

	// ResultsPerPill > 1 switches to multi-result cells; variant expansion is
	// off in that mode.
	ResultsPerPill int

	// Weighted delegates scoring to the weighted top-k store operation.
	Weighted bool

	// ResumeID restricts the search to one resume (detail lookup).
	ResumeID string

	IncludeChunkIDs bool
}

// Service is the matching engine. It is stateless; all intermediate state is
// request-scoped.
type Service struct {
	search   SearchRepository
	resumes  ResumeReader
	chunks   ChunkReader
	embedder Embedder

	defaultPageSize int
	maxPageSize     int
	workers         int
}

// New creates a matching service.
func New(search SearchRepository, resumes ResumeReader, chunks ChunkReader, embedder Embedder) *Service {
	return &Service{
		search:          search,
		resumes:         resumes,
		chunks:          chunks,
		embedder:        embedder,
		defaultPageSize: 15,
		maxPageSize:     100,
		workers:         8,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithWorkers bounds the parallel nearest-neighbor lookups per request.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// Search runs one matching request end to end: validate, embed, query, reduce,
// rank, paginate, attach evidence. Any collaborator failure aborts the whole
// request; no partial matrix is returned.
func (s *Service) Search(ctx context.Context, q Query) (domain.Matrix, error) {
	if err := s.normalizeQuery(&q); err != nil {
		return domain.Matrix{}, err
	}

	plan, err := s.embedVariants(ctx, q)
	if err != nil {
		return domain.Matrix{}, err
	}

	switch {
	case q.Weighted:
		return s.searchWeighted(ctx, q, plan)
	case q.ResultsPerPill > 1 || q.ResumeID != "":
		return s.searchMultiResult(ctx, q, plan)
	default:
		return s.searchSingleResult(ctx, q, plan)
	}
}

// normalizeQuery validates pills and clamps pagination knobs to safe values.
func (s *Service) normalizeQuery(q *Query) error {
	if err := domain.ValidatePills(q.Pills); err != nil {
		return err
	}
	if len(q.Synonyms) > 0 && len(q.Synonyms) != len(q.Pills) {
		return fmt.Errorf("synonyms must align with pills (%d vs %d): %w",
			len(q.Synonyms), len(q.Pills), domain.ErrValidation)
	}

	if q.ResultsPerPill == 0 {
		q.ResultsPerPill = 1
		if q.ResumeID != "" {
			q.ResultsPerPill = domain.DefaultResultsPerPill
		}
	}
	if err := domain.ValidateResultsPerPill(q.ResultsPerPill); err != nil {
		return err
	}

	if q.TopKResumes <= 0 {
		q.TopKResumes = s.defaultPageSize
	}
	if q.TopKResumes > s.maxPageSize {
		q.TopKResumes = s.maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// searchSingleResult is the default mode: variant expansion per pill, one
// best-per-resume lookup per distinct phrase, max reduction per pill.
func (s *Service) searchSingleResult(ctx context.Context, q Query, plan *variantPlan) (domain.Matrix, error) {
	hits, err := s.lookupBestPerResume(ctx, plan)
	if err != nil {
		return domain.Matrix{}, err
	}

	winners := reduceWinners(q.Pills, plan, hits)
	rows := assembleRows(q.Pills, winners)
	return s.finalize(ctx, q, rows, len(rows))
}

// searchMultiResult returns up to resultsPerPill entries per cell. Only the
// pill text itself is queried; synonym expansion is off in this mode.
func (s *Service) searchMultiResult(ctx context.Context, q Query, plan *variantPlan) (domain.Matrix, error) {
	perPill, err := s.lookupTopKPerResume(ctx, q, plan)
	if err != nil {
		return domain.Matrix{}, err
	}

	rows := assembleMultiRows(q.Pills, perPill)
	if len(rows) == 0 && q.ResumeID != "" {
		rows = []domain.ResumeRow{emptyDetailRow(q.ResumeID, len(q.Pills))}
	}
	return s.finalize(ctx, q, rows, len(rows))
}

// searchWeighted delegates ranking and pagination to the store's weighted
// top-k operation and only reformats its rows with metadata and evidence.
func (s *Service) searchWeighted(ctx context.Context, q Query, plan *variantPlan) (domain.Matrix, error) {
	vectors := make([][]float32, len(q.Pills))
	weights := make([]float64, len(q.Pills))
	for i, p := range q.Pills {
		vectors[i] = plan.pillVector(i)
		weights[i] = p.Weight
	}

	weighted, err := s.search.WeightedTopK(ctx, vectors, weights, q.TopKResumes, q.Offset)
	if err != nil {
		return domain.Matrix{}, err
	}

	rows := make([]domain.ResumeRow, len(weighted))
	for i, w := range weighted {
		row := domain.ResumeRow{
			ResumeID:  w.ResumeID,
			Scores:    make([]domain.PillScore, len(q.Pills)),
			Aggregate: w.WeightedScore,
			Rank:      w.Rank,
		}
		for p := range q.Pills {
			if w.PillChunkIDs[p] == "" {
				row.Scores[p] = placeholderScore()
				continue
			}
			row.Scores[p] = domain.PillScore{Entries: []domain.ScoreEntry{{
				Similarity: w.PillSims[p],
				ChunkID:    w.PillChunkIDs[p],
				Rank:       1,
			}}}
		}
		rows[i] = row
	}

	// the store already paginated; total is a lower bound, not an exact count
	total := q.Offset + len(rows)
	m := domain.Matrix{
		Pills:          pillTexts(q.Pills),
		Resumes:        rows,
		ResultsPerPill: 1,
		Offset:         q.Offset,
		HasMore:        len(rows) == q.TopKResumes,
		TotalResults:   total,
		Page:           q.Offset/q.TopKResumes + 1,
	}
	if err := s.attachEvidence(ctx, q, m.Resumes); err != nil {
		return domain.Matrix{}, err
	}
	return m, nil
}

// finalize ranks, paginates and decorates already-assembled rows.
func (s *Service) finalize(ctx context.Context, q Query, rows []domain.ResumeRow, total int) (domain.Matrix, error) {
	rows = rankAndPaginate(rows, q.TopKResumes, q.Offset)

	m := domain.Matrix{
		Pills:          pillTexts(q.Pills),
		Resumes:        rows,
		ResultsPerPill: q.ResultsPerPill,
		Offset:         q.Offset,
		HasMore:        len(rows) == q.TopKResumes,
		TotalResults:   total,
		Page:           q.Offset/q.TopKResumes + 1,
	}
	if err := s.attachEvidence(ctx, q, m.Resumes); err != nil {
		return domain.Matrix{}, err
	}
	return m, nil
}

// attachEvidence decorates the paginated rows with resume metadata and chunk
// evidence via bulk lookups. A winner referencing a missing chunk degrades to
// empty evidence; a missing resume record degrades to an unknown name.
func (s *Service) attachEvidence(ctx context.Context, q Query, rows []domain.ResumeRow) error {
	if len(rows) == 0 {
		return nil
	}

	resumeIDs := make([]string, len(rows))
	var chunkIDs []string
	for i, row := range rows {
		resumeIDs[i] = row.ResumeID
		for _, score := range row.Scores {
			for _, e := range score.Entries {
				if e.ChunkID != "" {
					chunkIDs = append(chunkIDs, e.ChunkID)
				}
			}
		}
	}

	resumes, err := s.resumes.GetMulti(ctx, resumeIDs)
	if err != nil {
		return fmt.Errorf("load resume metadata: %w", err)
	}
	chunkMeta, err := s.chunks.GetMulti(ctx, chunkIDs)
	if err != nil {
		return fmt.Errorf("load chunk evidence: %w", err)
	}

	log := logger.FromContext(ctx)
	for i := range rows {
		if res, ok := resumes[rows[i].ResumeID]; ok {
			rows[i].ResumeName = res.Name
			rows[i].PDFURL = res.PDFURL
		} else {
			rows[i].ResumeName = "Unknown"
		}

		for p := range rows[i].Scores {
			entries := rows[i].Scores[p].Entries
			for j := range entries {
				if entries[j].ChunkID == "" {
					continue
				}
				chunk, ok := chunkMeta[entries[j].ChunkID]
				if !ok {
					log.Warn("winner references missing chunk",
						zap.String("chunk_id", entries[j].ChunkID),
						zap.String("resume_id", rows[i].ResumeID))
				} else {
					coords := chunk.Coordinates
					entries[j].ChunkText = chunk.Text
					entries[j].PageNumber = chunk.PageNumber
					entries[j].Coordinates = &coords
				}
				if !q.IncludeChunkIDs {
					entries[j].ChunkID = ""
				}
			}
		}
	}
	return nil
}

func pillTexts(pills []domain.Pill) []string {
	texts := make([]string, len(pills))
	for i, p := range pills {
		texts[i] = p.Text
	}
	return texts
}

func placeholderScore() domain.PillScore {
	return domain.PillScore{Entries: []domain.ScoreEntry{{}}}
}

// emptyDetailRow echoes the requested resume when no chunk matched any pill,
// so a detail lookup always returns exactly one row.
func emptyDetailRow(resumeID string, pillCount int) domain.ResumeRow {
	scores := make([]domain.PillScore, pillCount)
	for i := range scores {
		scores[i] = domain.PillScore{Entries: []domain.ScoreEntry{}}
	}
	return domain.ResumeRow{ResumeID: resumeID, Scores: scores}
}
