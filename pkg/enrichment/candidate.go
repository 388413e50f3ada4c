package enrichment

import (
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/hondana/hondana/pkg/scoring"
)

// Candidate is a scored search result. It only lives for the duration of one
// record's enrichment and is never persisted.
type Candidate struct {
	ResultID          string   `json:"result_id"`
	Title             string   `json:"title"`
	Author            string   `json:"author"`
	Categories        []string `json:"categories,omitempty"`
	Description       string   `json:"description,omitempty"`
	Source            string   `json:"source"`
	IdentityScore     float64  `json:"identity_score"`
	DescScore         float64  `json:"desc_score"`
	OverallConfidence float64  `json:"overall_confidence"`
}

// ScoreResults scores every search result against the query title/author.
func ScoreResults(queryTitle, queryAuthor string, results []metadata.SearchResult) []Candidate {
	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		overall, descScore, identityScore := scoring.Score(queryTitle, queryAuthor, result.Title, result.Author, result.Description)
		candidates = append(candidates, Candidate{
			ResultID:          result.ResultID,
			Title:             result.Title,
			Author:            result.Author,
			Categories:        result.Categories,
			Description:       result.Description,
			Source:            result.Source,
			IdentityScore:     identityScore,
			DescScore:         descScore,
			OverallConfidence: overall,
		})
	}
	return candidates
}

// SelectBest picks the candidate with the strictly highest overall
// confidence. Ties keep the first one encountered.
func SelectBest(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}

	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if candidates[i].OverallConfidence > best.OverallConfidence {
			best = &candidates[i]
		}
	}
	return best
}
