package match

import (
	"sort"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

// assembleRows builds one fully populated score row per resume from
// single-result winners. Cells without a winner get the zero placeholder so no
// resume row has gaps. The aggregate is the unweighted sum of each pill's
// winning similarity.
func assembleRows(pills []domain.Pill, winners []map[string]domain.Winner) []domain.ResumeRow {
	order := resumeUnion(func(pill int) []string {
		ids := make([]string, 0, len(winners[pill]))
		for id := range winners[pill] {
			ids = append(ids, id)
		}
		return ids
	}, len(pills))

	rows := make([]domain.ResumeRow, 0, len(order))
	for _, id := range order {
		row := domain.ResumeRow{ResumeID: id, Scores: make([]domain.PillScore, len(pills))}
		for p := range pills {
			win, ok := winners[p][id]
			if !ok {
				row.Scores[p] = placeholderScore()
				continue
			}
			row.Scores[p] = domain.PillScore{Entries: []domain.ScoreEntry{{
				Similarity: win.MaxSim,
				ChunkID:    win.BestChunkID,
				Rank:       1,
			}}}
			row.Aggregate += win.MaxSim
		}
		rows = append(rows, row)
	}
	return rows
}

// assembleMultiRows builds rows from top-k hits per pill. A cell carries up to
// resultsPerPill entries ordered by rank; an unmatched cell is left empty. The
// aggregate sums each cell's rank-1 similarity.
func assembleMultiRows(pills []domain.Pill, perPill []map[string][]domain.SimilarityHit) []domain.ResumeRow {
	order := resumeUnion(func(pill int) []string {
		ids := make([]string, 0, len(perPill[pill]))
		for id := range perPill[pill] {
			ids = append(ids, id)
		}
		return ids
	}, len(pills))

	rows := make([]domain.ResumeRow, 0, len(order))
	for _, id := range order {
		row := domain.ResumeRow{ResumeID: id, Scores: make([]domain.PillScore, len(pills))}
		for p := range pills {
			hits := perPill[p][id]
			entries := make([]domain.ScoreEntry, len(hits))
			for i, h := range hits {
				entries[i] = domain.ScoreEntry{
					Similarity: h.Similarity,
					ChunkID:    h.ChunkID,
					Rank:       h.Rank,
				}
			}
			row.Scores[p] = domain.PillScore{Entries: entries}
			row.Aggregate += row.Scores[p].Representative()
		}
		rows = append(rows, row)
	}
	return rows
}

// rankAndPaginate stable-sorts rows descending by aggregate (equal scores keep
// discovery order), assigns absolute 1-based ranks, then slices offset/limit.
// An offset past the end yields an empty page.
func rankAndPaginate(rows []domain.ResumeRow, limit, offset int) []domain.ResumeRow {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Aggregate > rows[j].Aggregate })
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if offset >= len(rows) {
		return []domain.ResumeRow{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
