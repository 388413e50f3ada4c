package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MetadataJobStatusQueued    = "queued"
	MetadataJobStatusRunning   = "running"
	MetadataJobStatusCompleted = "completed"
	MetadataJobStatusFailed    = "failed"
	MetadataJobStatusCancelled = "cancelled"
)

type MetadataJob struct {
	bun.BaseModel `bun:"table:metadata_jobs,alias:mj"`

	ID             int        `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Status         string     `bun:",nullzero" json:"status"`
	TotalBooks     int        `json:"total_books"`
	ProcessedBooks int        `json:"processed_books"`
	SucceededBooks int        `json:"succeeded_books"`
	FailedBooks    int        `json:"failed_books"`
	CurrentBookID  *int       `json:"current_book_id"`
	LastError      *string    `json:"last_error"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	CancelledAt    *time.Time `json:"cancelled_at"`
}

// Terminal reports whether the job has reached a final status. Terminal jobs
// are never mutated again.
func (j *MetadataJob) Terminal() bool {
	switch j.Status {
	case MetadataJobStatusCompleted, MetadataJobStatusFailed, MetadataJobStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the job counts against the single-flight guard.
func (j *MetadataJob) Active() bool {
	return j.Status == MetadataJobStatusQueued || j.Status == MetadataJobStatusRunning
}
