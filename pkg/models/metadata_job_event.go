package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	MetadataJobEventBookCompleted = "book_completed"
	MetadataJobEventBookFailed    = "book_failed"
)

// MetadataJobEvent is an append-only record of a per-book outcome. Event ids
// are strictly increasing within a store and act as the stream cursor.
type MetadataJobEvent struct {
	bun.BaseModel `bun:"table:metadata_job_events,alias:mje"`

	ID            int                      `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time                `json:"created_at"`
	JobID         int                      `bun:",nullzero" json:"job_id"`
	EventType     string                   `bun:",nullzero" json:"event_type"`
	Payload       string                   `bun:",nullzero" json:"-"`
	PayloadParsed *MetadataJobEventPayload `bun:"-" json:"payload"`
}

// MetadataJobEventPayload is the structured record of what happened to one
// book, including the running counters at the time of the event.
type MetadataJobEventPayload struct {
	BookID    int                `json:"book_id"`
	Title     string             `json:"title"`
	Author    string             `json:"author"`
	Error     *string            `json:"error,omitempty"`
	Selected  *SelectedCandidate `json:"selected,omitempty"`
	Processed int                `json:"processed"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// SelectedCandidate summarizes the provider result the pipeline picked.
type SelectedCandidate struct {
	ResultID          string  `json:"result_id"`
	Title             string  `json:"title"`
	Author            string  `json:"author"`
	Source            string  `json:"source"`
	IdentityScore     float64 `json:"identity_score"`
	DescScore         float64 `json:"desc_score"`
	OverallConfidence float64 `json:"overall_confidence"`
}

func (e *MetadataJobEvent) MarshalPayload() error {
	if e.PayloadParsed == nil {
		e.Payload = "{}"
		return nil
	}
	data, err := json.Marshal(e.PayloadParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	e.Payload = string(data)
	return nil
}

func (e *MetadataJobEvent) UnmarshalPayload() error {
	e.PayloadParsed = &MetadataJobEventPayload{}
	if e.Payload == "" {
		return nil
	}
	err := json.Unmarshal([]byte(e.Payload), e.PayloadParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
