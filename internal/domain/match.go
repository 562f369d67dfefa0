package domain

// SimilarityHit is one nearest-neighbor result for a query vector.
// Similarity is cosine similarity in [0,1] for unit vectors; Rank is 1-based,
// ascending, rank 1 is the strongest match.
type SimilarityHit struct {
	ResumeID   string
	ChunkID    string
	Similarity float64
	Rank       int
}

// Winner is the best chunk found for one resume under one pill's variant set.
type Winner struct {
	ResumeID    string
	MaxSim      float64
	BestChunkID string
	Variant     string
}

// ScoreEntry is one scored piece of evidence for a (resume, pill) cell.
// The no-match placeholder has Similarity 0, empty text and no chunk reference.
type ScoreEntry struct {
	Similarity  float64
	ChunkID     string
	ChunkText   string
	PageNumber  int
	Coordinates *Coordinates
	Rank        int
}

// PillScore holds the scored entries of one (resume, pill) cell, strongest
// first. Single-result mode carries exactly one entry (possibly the
// placeholder); multi-result mode carries up to resultsPerPill entries and may
// be empty.
type PillScore struct {
	Entries []ScoreEntry
}

// Representative returns the similarity that feeds the resume's aggregate
// score: the strongest entry, or 0 when the cell has no match.
func (p PillScore) Representative() float64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[0].Similarity
}

// ResumeRow is one resume's fully populated score row: Scores is indexed by
// pill position and always has one PillScore per queried pill.
type ResumeRow struct {
	ResumeID   string
	ResumeName string
	PDFURL     string
	Scores     []PillScore
	Aggregate  float64
	Rank       int
}

// Matrix is the ranked, paginated resume×pill result table.
type Matrix struct {
	Pills          []string
	Resumes        []ResumeRow
	ResultsPerPill int
	Offset         int
	HasMore        bool
	TotalResults   int
	Page           int
}

// WeightedResume is one ranked row from the weighted top-k collaborator
// operation: per-pill similarities and evidence chunk ids, already weighted.
type WeightedResume struct {
	ResumeID      string
	WeightedScore float64
	PillSims      []float64
	PillChunkIDs  []string
	Rank          int
}
