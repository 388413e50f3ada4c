package jobs

import (
	"context"
	"time"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/enrichment"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Engine runs one enrichment job to completion. It is the only writer of job
// status and counters while the job runs; cancellation comes in through the
// job row and is observed at book boundaries.
type Engine struct {
	jobService  *Service
	bookService *books.Service
	pipeline    *enrichment.Pipeline
}

func NewEngine(jobService *Service, bookService *books.Service, pipeline *enrichment.Pipeline) *Engine {
	return &Engine{
		jobService:  jobService,
		bookService: bookService,
		pipeline:    pipeline,
	}
}

// Run drives the given job through its whole lifecycle. Per-book failures
// are recorded and the loop continues; only failures of the job's own
// bookkeeping (or a provider configuration error that would fail every book
// the same way) end the job early with status failed.
func (e *Engine) Run(ctx context.Context, job *models.MetadataJob) error {
	log := logger.FromContext(ctx).Root(logger.Data{"job_id": job.ID})
	ctx = log.WithContext(ctx)

	// Re-read in case the job was cancelled while still queued.
	job, err := e.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
	if err != nil {
		return errors.WithStack(err)
	}
	if job.Status == models.MetadataJobStatusCancelled {
		now := time.Now()
		job.FinishedAt = &now
		return errors.WithStack(e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"finished_at"}}))
	}

	bookIDs, err := e.bookService.ListBookIDsForEnrichment(ctx, nil)
	if err != nil {
		return e.failJob(ctx, job, err)
	}

	// Claim the job.
	now := time.Now()
	job.Status = models.MetadataJobStatusRunning
	job.StartedAt = &now
	job.TotalBooks = len(bookIDs)
	err = e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "started_at", "total_books"}})
	if err != nil {
		return errors.WithStack(err)
	}
	log.Info("enrichment job started", logger.Data{"total_books": job.TotalBooks})

	for _, bookID := range bookIDs {
		// Cancellation is only honored here, between books. A book already
		// being processed always finishes.
		fresh, err := e.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &job.ID})
		if err != nil {
			return e.failJob(ctx, job, err)
		}
		if fresh.Status == models.MetadataJobStatusCancelled {
			job.Status = fresh.Status
			job.CancelledAt = fresh.CancelledAt
			finishedAt := time.Now()
			job.FinishedAt = &finishedAt
			job.CurrentBookID = nil
			err = e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"finished_at", "current_book_id"}})
			if err != nil {
				return errors.WithStack(err)
			}
			log.Info("enrichment job cancelled", logger.Data{"processed_books": job.ProcessedBooks})
			return nil
		}

		job.CurrentBookID = &bookID
		err = e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"current_book_id"}})
		if err != nil {
			return e.failJob(ctx, job, err)
		}

		if err := e.processBook(ctx, job, bookID); err != nil {
			return e.failJob(ctx, job, err)
		}
	}

	job.Status = models.MetadataJobStatusCompleted
	finishedAt := time.Now()
	job.FinishedAt = &finishedAt
	job.CurrentBookID = nil
	err = e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "finished_at", "current_book_id"}})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("enrichment job completed", logger.Data{
		"processed_books": job.ProcessedBooks,
		"succeeded_books": job.SucceededBooks,
		"failed_books":    job.FailedBooks,
	})
	return nil
}

// processBook runs one book through the pipeline and records the outcome.
// A returned error means the job itself should fail, not the book.
func (e *Engine) processBook(ctx context.Context, job *models.MetadataJob, bookID int) error {
	log := logger.FromContext(ctx)

	payload := &models.MetadataJobEventPayload{BookID: bookID}
	eventType := models.MetadataJobEventBookCompleted

	book, err := e.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	switch {
	case errors.Is(err, errcodes.NotFound("Book")):
		// The book disappeared mid-job. Record it and move on.
		eventType = models.MetadataJobEventBookFailed
		message := "Book not found."
		payload.Error = &message
	case err != nil:
		return errors.WithStack(err)
	default:
		payload.Title = book.Title
		if book.Author != nil {
			payload.Author = *book.Author
		}

		result, perr := e.pipeline.Process(ctx, book)
		// A candidate chosen before a later step broke still belongs in the
		// event, so failures report what had been selected.
		if result != nil && result.Selected != nil {
			payload.Selected = &models.SelectedCandidate{
				ResultID:          result.Selected.ResultID,
				Title:             result.Selected.Title,
				Author:            result.Selected.Author,
				Source:            result.Selected.Source,
				IdentityScore:     result.Selected.IdentityScore,
				DescScore:         result.Selected.DescScore,
				OverallConfidence: result.Selected.OverallConfidence,
			}
		}
		if perr != nil {
			if isJobFatal(perr) {
				return errors.WithStack(perr)
			}
			eventType = models.MetadataJobEventBookFailed
			message := perr.Error()
			payload.Error = &message
			log.Warn("book enrichment failed", logger.Data{"book_id": bookID, "error": message})
		}
	}

	job.ProcessedBooks++
	columns := []string{"processed_books", "succeeded_books", "failed_books"}
	if eventType == models.MetadataJobEventBookFailed {
		job.FailedBooks++
		job.LastError = payload.Error
		columns = append(columns, "last_error")
	} else {
		job.SucceededBooks++
	}
	if err := e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: columns}); err != nil {
		return errors.WithStack(err)
	}

	payload.Processed = job.ProcessedBooks
	payload.Succeeded = job.SucceededBooks
	payload.Failed = job.FailedBooks

	event := &models.MetadataJobEvent{
		JobID:         job.ID,
		EventType:     eventType,
		PayloadParsed: payload,
	}
	return errors.WithStack(e.jobService.CreateEvent(ctx, event))
}

func (e *Engine) failJob(ctx context.Context, job *models.MetadataJob, cause error) error {
	log := logger.FromContext(ctx)

	job.Status = models.MetadataJobStatusFailed
	now := time.Now()
	job.FinishedAt = &now
	job.CurrentBookID = nil
	message := cause.Error()
	job.LastError = &message

	err := e.jobService.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "finished_at", "current_book_id", "last_error"}})
	if err != nil {
		log.Err(err).Error("failed to mark enrichment job as failed")
	}

	log.Err(cause).Error("enrichment job failed")
	return errors.WithStack(cause)
}

// isJobFatal reports whether a pipeline error would fail every remaining
// book identically, such as a missing provider configuration.
func isJobFatal(err error) bool {
	var codeErr *errcodes.Error
	return errors.As(err, &codeErr) && codeErr.Code == "provider_config"
}
