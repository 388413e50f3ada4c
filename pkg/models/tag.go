package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// TopicNamespace is the tag prefix reserved for independently curated topic
// tags. Enrichment never removes tags in this namespace.
const TopicNamespace = "topic:"

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	BookCount int       `bun:",scanonly" json:"book_count"`
}

// IsTopic reports whether the tag lives in the topic namespace.
func (t *Tag) IsTopic() bool {
	return strings.HasPrefix(strings.ToLower(t.Name), TopicNamespace)
}

type BookTag struct {
	bun.BaseModel `bun:"table:book_tags,alias:bt"`

	ID     int  `bun:",pk,nullzero" json:"id"`
	BookID int  `bun:",nullzero" json:"book_id"`
	TagID  int  `bun:",nullzero" json:"tag_id"`
	Tag    *Tag `bun:"rel:belongs-to,join:tag_id=id" json:"tag,omitempty"`
}
