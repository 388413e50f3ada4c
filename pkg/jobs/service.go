package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveJobOptions struct {
	ID *int
}

type ListJobsOptions struct {
	Limit  *int
	Offset *int
	Status *string
}

type UpdateJobOptions struct {
	Columns []string
}

type ListEventsOptions struct {
	JobID   int
	AfterID *int
	Limit   *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateJob inserts a new queued job. Only one job may be queued or running
// at a time; the check and the insert run in one transaction so two
// concurrent creates can't both slip past the guard.
func (svc *Service) CreateJob(ctx context.Context, job *models.MetadataJob) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	if job.Status == "" {
		job.Status = models.MetadataJobStatusQueued
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		active, err := tx.
			NewSelect().
			Model((*models.MetadataJob)(nil)).
			Where("mj.status IN (?)", bun.In([]string{models.MetadataJobStatusQueued, models.MetadataJobStatusRunning})).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if active > 0 {
			return errcodes.Conflict("An enrichment job is already active.")
		}

		_, err = tx.
			NewInsert().
			Model(job).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveJob(ctx context.Context, opts RetrieveJobOptions) (*models.MetadataJob, error) {
	job := &models.MetadataJob{}

	q := svc.db.
		NewSelect().
		Model(job)

	if opts.ID != nil {
		q = q.Where("mj.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.MetadataJob, error) {
	jobs := []*models.MetadataJob{}

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("mj.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Status != nil {
		q = q.Where("mj.status = ?", *opts.Status)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return jobs, nil
}

// NextQueuedJob returns the oldest queued job, or NotFound when the queue is
// empty.
func (svc *Service) NextQueuedJob(ctx context.Context) (*models.MetadataJob, error) {
	job := &models.MetadataJob{}

	err := svc.db.
		NewSelect().
		Model(job).
		Where("mj.status = ?", models.MetadataJobStatusQueued).
		Order("mj.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) UpdateJob(ctx context.Context, job *models.MetadataJob, opts UpdateJobOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	now := time.Now()
	job.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(job).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Job")
		}
		return errors.WithStack(err)
	}

	return nil
}

// CancelJob flips a queued or running job to cancelled. The running loop
// notices at its next book boundary; this call never interrupts a book in
// flight. Cancelling an already-terminal job is a no-op.
func (svc *Service) CancelJob(ctx context.Context, id int) (*models.MetadataJob, error) {
	job, err := svc.RetrieveJob(ctx, RetrieveJobOptions{ID: &id})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if job.Terminal() {
		return job, nil
	}

	now := time.Now()
	job.Status = models.MetadataJobStatusCancelled
	job.CancelledAt = &now

	err = svc.UpdateJob(ctx, job, UpdateJobOptions{Columns: []string{"status", "cancelled_at"}})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) CreateEvent(ctx context.Context, event *models.MetadataJobEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := event.MarshalPayload(); err != nil {
		return errors.WithStack(err)
	}

	_, err := svc.db.
		NewInsert().
		Model(event).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// ListEvents returns a job's events with id greater than the cursor, in
// ascending id order. Replaying the same cursor returns the same events.
func (svc *Service) ListEvents(ctx context.Context, opts ListEventsOptions) ([]*models.MetadataJobEvent, error) {
	events := []*models.MetadataJobEvent{}

	q := svc.db.
		NewSelect().
		Model(&events).
		Where("mje.job_id = ?", opts.JobID).
		Order("mje.id ASC")

	if opts.AfterID != nil {
		q = q.Where("mje.id > ?", *opts.AfterID)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, event := range events {
		if err := event.UnmarshalPayload(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return events, nil
}
