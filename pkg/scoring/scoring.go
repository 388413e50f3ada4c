// Package scoring ranks metadata search results against the catalog record
// that produced the query.
package scoring

import (
	"unicode/utf8"

	"github.com/hondana/hondana/pkg/normalize"
)

// TargetDescriptionLength is the description length (in characters) that
// earns a full description score.
const TargetDescriptionLength = 800.0

// Score rates a candidate against the query title/author and its description.
// All three scores are in [0, 1]. The overall confidence multiplies the
// identity score by the description score, so a perfect identity match with
// no description still scores 0 overall.
func Score(queryTitle, queryAuthor, candidateTitle, candidateAuthor, description string) (overall, descScore, identityScore float64) {
	authorScore := AuthorSimilarity(queryAuthor, candidateAuthor)
	titleScore := TitleTokenOverlap(queryTitle, candidateTitle)
	identityScore = (authorScore + titleScore) / 2.0
	descScore = DescriptionScore(description)
	return identityScore * descScore, descScore, identityScore
}

// AuthorSimilarity is the Jaccard index of the normalized author token sets.
func AuthorSimilarity(query, candidate string) float64 {
	queryTokens := tokenSet(normalize.Author(query))
	candTokens := tokenSet(normalize.Author(candidate))
	if len(queryTokens) == 0 || len(candTokens) == 0 {
		return 0.0
	}
	overlap := 0
	for token := range queryTokens {
		if _, ok := candTokens[token]; ok {
			overlap++
		}
	}
	union := len(queryTokens) + len(candTokens) - overlap
	return float64(overlap) / float64(union)
}

// TitleTokenOverlap measures how much of the query title the candidate
// recovers: |query ∩ candidate| / |query|. It is deliberately asymmetric so a
// candidate with a long subtitle isn't penalized for extra tokens.
func TitleTokenOverlap(query, candidate string) float64 {
	queryTokens := tokenSet(normalize.Title(query))
	candTokens := tokenSet(normalize.Title(candidate))
	if len(queryTokens) == 0 || len(candTokens) == 0 {
		return 0.0
	}
	overlap := 0
	for token := range queryTokens {
		if _, ok := candTokens[token]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}

// DescriptionScore scales with description length up to the target length.
// An empty description scores 0.
func DescriptionScore(description string) float64 {
	if description == "" {
		return 0.0
	}
	score := float64(utf8.RuneCountInString(description)) / TargetDescriptionLength
	if score > 1.0 {
		return 1.0
	}
	return score
}

func tokenSet(value string) map[string]struct{} {
	tokens := normalize.Tokens(value)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
