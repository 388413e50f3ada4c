package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID               int        `bun:",pk,nullzero" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Title            string     `bun:",nullzero" json:"title"`
	Author           *string    `json:"author"`
	NormalizedTitle  *string    `json:"normalized_title,omitempty"`
	NormalizedAuthor *string    `json:"normalized_author,omitempty"`
	Description      *string    `json:"description"`
	RawDescription   *string    `json:"raw_description,omitempty"`
	Tags             []*BookTag `bun:"rel:has-many,join:id=book_id" json:"tags,omitempty"`
}
