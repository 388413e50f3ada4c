package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorSimilarityExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, AuthorSimilarity("Jane Doe", "Jane Doe"))
}

func TestAuthorSimilarityFlippedName(t *testing.T) {
	// "Doe, Jane" normalizes to the same token set as "Jane Doe".
	assert.Equal(t, 1.0, AuthorSimilarity("Jane Doe", "Doe, Jane"))
}

func TestAuthorSimilarityPartialMatch(t *testing.T) {
	score := AuthorSimilarity("Jane Doe", "Jane A. Doe")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestAuthorSimilarityNoTokens(t *testing.T) {
	assert.Equal(t, 0.0, AuthorSimilarity("", "Jane Doe"))
	assert.Equal(t, 0.0, AuthorSimilarity("Jane Doe", ""))
	assert.Equal(t, 0.0, AuthorSimilarity("", ""))
}

func TestTitleTokenOverlapExact(t *testing.T) {
	assert.Equal(t, 1.0, TitleTokenOverlap("The Divine Comedy", "the divine comedy"))
}

func TestTitleTokenOverlapAsymmetric(t *testing.T) {
	// Every query token is recovered, so extra candidate tokens don't hurt.
	assert.Equal(t, 1.0, TitleTokenOverlap("Dune", "Dune Messiah"))
	// The reverse direction only recovers half the query tokens.
	assert.Equal(t, 0.5, TitleTokenOverlap("Dune Messiah", "Dune"))
}

func TestDescriptionScore(t *testing.T) {
	assert.Equal(t, 0.0, DescriptionScore(""))
	assert.Equal(t, 0.5, DescriptionScore(strings.Repeat("a", 400)))
	assert.Equal(t, 1.0, DescriptionScore(strings.Repeat("a", 800)))
	assert.Equal(t, 1.0, DescriptionScore(strings.Repeat("a", 1600)))
	assert.Equal(t, 1.0, DescriptionScore(strings.Repeat("a", 2000)))
}

func TestDescriptionScoreCountsCharacters(t *testing.T) {
	// "é" is two bytes but one character; length is measured in characters.
	assert.Equal(t, 0.5, DescriptionScore(strings.Repeat("é", 400)))
	assert.Equal(t, 1.0, DescriptionScore(strings.Repeat("é", 800)))
}

func TestScoreCombines(t *testing.T) {
	overall, descScore, identityScore := Score("Great Book", "Jane Doe", "Great Book", "Jane Doe", strings.Repeat("a", 800))
	assert.Equal(t, 1.0, descScore)
	assert.Equal(t, 1.0, identityScore)
	assert.Equal(t, 1.0, overall)
}

func TestScoreZeroWithoutDescription(t *testing.T) {
	// The overall confidence multiplies identity by description score, so a
	// perfect identity match with no description still scores 0 overall.
	overall, descScore, identityScore := Score("Great Book", "Jane Doe", "Great Book", "Jane Doe", "")
	assert.Equal(t, 0.0, descScore)
	assert.Equal(t, 1.0, identityScore)
	assert.Equal(t, 0.0, overall)
}

func TestScoreDegenerateInputs(t *testing.T) {
	overall, descScore, identityScore := Score("", "", "", "", "")
	assert.Equal(t, 0.0, overall)
	assert.Equal(t, 0.0, descScore)
	assert.Equal(t, 0.0, identityScore)
}
