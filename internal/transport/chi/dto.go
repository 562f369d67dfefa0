package chi

import (
	"fmt"

	"github.com/krippilippa/matchagig-fast/internal/domain"
	matchuc "github.com/krippilippa/matchagig-fast/internal/usecase/match"
)

func queryFromRequest(req searchRequest, weighted, details bool) (matchuc.Query, error) {
	pills := make([]domain.Pill, len(req.Pills))
	for i, p := range req.Pills {
		pill, err := domain.NewPill(p.Pill, p.Weight)
		if err != nil {
			return matchuc.Query{}, fmt.Errorf("pill %d: %w", i, err)
		}
		pills[i] = pill
	}

	// synonyms arrive keyed by pill text; realign by position so duplicate
	// pill texts stay independent
	var synonyms [][]string
	if len(req.Synonyms) > 0 {
		synonyms = make([][]string, len(pills))
		for i, p := range pills {
			synonyms[i] = req.Synonyms[p.Text]
		}
	}

	topK := req.TopKResumes
	if topK == 0 {
		topK = req.TopK
	}

	q := matchuc.Query{
		Pills:           pills,
		Synonyms:        synonyms,
		TopKResumes:     topK,
		Offset:          req.Offset,
		IncludeChunkIDs: req.IncludeChunkIDs,
		ResultsPerPill:  req.ResultsPerPill,
		Weighted:        weighted,
	}
	if details {
		q.ResumeID = req.ResumeID
	}
	return q, nil
}

type scoreEntryDTO struct {
	Similarity  float64             `json:"similarity"`
	ChunkText   string              `json:"chunk_text"`
	PageNumber  int                 `json:"page_number,omitempty"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	ChunkID     string              `json:"chunk_id,omitempty"`
	Rank        int                 `json:"rank,omitempty"`
}

type singleScoreDTO struct {
	MaxSim        float64             `json:"max_sim"`
	BestChunkText string              `json:"best_chunk_text"`
	PageNumber    int                 `json:"page_number,omitempty"`
	Coordinates   *domain.Coordinates `json:"coordinates,omitempty"`
	ChunkID       string              `json:"chunk_id,omitempty"`
}

type multiScoreDTO struct {
	Results []scoreEntryDTO `json:"results"`
}

type resumeRowDTO struct {
	ResumeID      string         `json:"resume_id"`
	ResumeName    string         `json:"resume_name"`
	PDFURL        string         `json:"pdf_url,omitempty"`
	Rank          int            `json:"rank"`
	Score         float64        `json:"score,omitempty"`
	WeightedScore float64        `json:"weighted_score,omitempty"`
	Scores        map[string]any `json:"scores"`
}

type matrixResponse struct {
	Pills          []string       `json:"pills"`
	Resumes        []resumeRowDTO `json:"resumes"`
	ResultsPerPill int            `json:"results_per_pill,omitempty"`
	Offset         int            `json:"offset"`
	HasMore        bool           `json:"has_more"`
	TotalResults   int            `json:"total_results"`
	Page           int            `json:"page"`
}

// matrixToResponse renders cells keyed by pill text. Single-result cells
// carry max_sim/best_chunk_text; multi-result cells carry a results array.
func matrixToResponse(m domain.Matrix, weighted bool) matrixResponse {
	multi := m.ResultsPerPill > 1

	rows := make([]resumeRowDTO, len(m.Resumes))
	for i, row := range m.Resumes {
		dto := resumeRowDTO{
			ResumeID:   row.ResumeID,
			ResumeName: row.ResumeName,
			PDFURL:     row.PDFURL,
			Rank:       row.Rank,
			Scores:     make(map[string]any, len(m.Pills)),
		}
		if weighted {
			dto.WeightedScore = row.Aggregate
		} else {
			dto.Score = row.Aggregate
		}

		for p, pill := range m.Pills {
			score := row.Scores[p]
			if multi {
				dto.Scores[pill] = multiScoreToDTO(score)
			} else {
				dto.Scores[pill] = singleScoreToDTO(score)
			}
		}
		rows[i] = dto
	}

	return matrixResponse{
		Pills:          m.Pills,
		Resumes:        rows,
		ResultsPerPill: m.ResultsPerPill,
		Offset:         m.Offset,
		HasMore:        m.HasMore,
		TotalResults:   m.TotalResults,
		Page:           m.Page,
	}
}

func singleScoreToDTO(score domain.PillScore) singleScoreDTO {
	if len(score.Entries) == 0 {
		return singleScoreDTO{}
	}
	e := score.Entries[0]
	return singleScoreDTO{
		MaxSim:        e.Similarity,
		BestChunkText: e.ChunkText,
		PageNumber:    e.PageNumber,
		Coordinates:   e.Coordinates,
		ChunkID:       e.ChunkID,
	}
}

func multiScoreToDTO(score domain.PillScore) multiScoreDTO {
	results := make([]scoreEntryDTO, len(score.Entries))
	for i, e := range score.Entries {
		results[i] = scoreEntryDTO{
			Similarity:  e.Similarity,
			ChunkText:   e.ChunkText,
			PageNumber:  e.PageNumber,
			Coordinates: e.Coordinates,
			ChunkID:     e.ChunkID,
			Rank:        e.Rank,
		}
	}
	return multiScoreDTO{Results: results}
}
