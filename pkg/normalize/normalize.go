// Package normalize prepares titles and author names for comparison against
// external metadata providers. Both the catalog's normalized columns and the
// candidate scorer go through these functions so they always agree.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketREs = []*regexp.Regexp{
		regexp.MustCompile(`\([^)]*\)`),
		regexp.MustCompile(`\[[^\]]*\]`),
		regexp.MustCompile(`\{[^}]*\}`),
		regexp.MustCompile(`<[^>]*>`),
	}
	volumeRE      = regexp.MustCompile(`(?i)\b(vol|volume|book|part|series)\.?\s*\d+\b`)
	numberRE      = regexp.MustCompile(`(?i)(#|no\.?|number)\s*\d+\b`)
	punctuationRE = regexp.MustCompile("[\"'`~!@#$%^*_=+|\\\\/;:,?.-]")
	leadingNumRE  = regexp.MustCompile(`^\s*\d+\s+`)
	trailingNumRE = regexp.MustCompile(`\s+\d+\s*$`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
)

var asciiFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// FoldToASCII decomposes accented characters and drops anything that still
// isn't ASCII afterwards.
func FoldToASCII(value string) string {
	folded, _, err := transform.String(asciiFolder, value)
	if err != nil {
		folded = value
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripBracketed removes bracketed annotations, repeating until no nested
// brackets remain.
func StripBracketed(value string) string {
	cleaned := value
	previous := ""
	for previous != cleaned {
		previous = cleaned
		for _, re := range bracketREs {
			cleaned = re.ReplaceAllString(cleaned, " ")
		}
	}
	return cleaned
}

// Title normalizes a book title for token comparison: ASCII fold, strip
// bracketed annotations and volume/ordinal markers, drop punctuation,
// collapse whitespace, lowercase. Returns "" when nothing survives.
func Title(value string) string {
	if value == "" {
		return ""
	}
	text := FoldToASCII(value)
	text = StripBracketed(text)
	text = strings.ReplaceAll(text, "&", " and ")
	text = volumeRE.ReplaceAllString(text, " ")
	text = numberRE.ReplaceAllString(text, " ")
	text = punctuationRE.ReplaceAllString(text, " ")
	text = leadingNumRE.ReplaceAllString(text, " ")
	text = trailingNumRE.ReplaceAllString(text, " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// Author normalizes an author name. "Last, First" is flipped to "First Last"
// before folding so both forms produce the same token set.
func Author(value string) string {
	if value == "" {
		return ""
	}
	text := FoldToASCII(value)
	text = StripBracketed(text)
	if idx := strings.Index(text, ","); idx >= 0 {
		last := strings.TrimSpace(text[:idx])
		rest := strings.TrimSpace(text[idx+1:])
		if rest != "" {
			text = rest + " " + last
		}
	}
	text = strings.ReplaceAll(text, "&", " and ")
	text = punctuationRE.ReplaceAllString(text, " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// Tokens splits a normalized string into its whitespace tokens.
func Tokens(value string) []string {
	return strings.Fields(value)
}
