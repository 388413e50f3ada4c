package enrichment

import (
	"strings"

	"github.com/hondana/hondana/pkg/models"
)

// CategoryTopicTags turns a candidate's category taxonomy into topic tags.
// Each category is a path like "Fiction / Science Fiction" or
// "Fiction > Mystery"; every trimmed segment becomes one topic-namespaced
// tag, de-duplicated case-insensitively in first-seen order.
func CategoryTopicTags(categories []string) []string {
	tags := []string{}
	for _, category := range categories {
		segments := strings.FieldsFunc(category, func(r rune) bool {
			return r == '/' || r == '>'
		})
		for _, segment := range segments {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			tags = MergeTags(tags, []string{models.TopicNamespace + segment})
		}
	}
	return tags
}

// MergeTags appends tags to the working set, skipping names already present
// under a case-insensitive comparison. First occurrence wins.
func MergeTags(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, tag := range existing {
		seen[strings.ToLower(tag)] = true
	}
	for _, tag := range more {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		existing = append(existing, tag)
	}
	return existing
}
