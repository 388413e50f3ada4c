package jobs

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Streamer turns a job's row and event log into a live feed by polling.
// Events are replayed from a cursor, so a consumer that disconnects can
// resume without losing anything.
type Streamer struct {
	jobService   *Service
	pollInterval time.Duration
}

func NewStreamer(jobService *Service, pollInterval time.Duration) *Streamer {
	return &Streamer{
		jobService:   jobService,
		pollInterval: pollInterval,
	}
}

// Stream calls emit for every new event and every status change until the
// job reaches a terminal status, then emits a final "done" with the job
// snapshot and returns. afterEventID resumes the event cursor; nil starts
// from the beginning. The poll delay is fixed; there is no backoff and no
// busy loop.
func (s *Streamer) Stream(ctx context.Context, jobID int, afterEventID *int, emit func(event string, data interface{}) error) error {
	cursor := 0
	if afterEventID != nil {
		cursor = *afterEventID
	}
	lastStatus := ""

	for {
		job, err := s.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &jobID})
		if err != nil {
			return errors.WithStack(err)
		}

		events, err := s.jobService.ListEvents(ctx, ListEventsOptions{JobID: jobID, AfterID: &cursor})
		if err != nil {
			return errors.WithStack(err)
		}
		for _, event := range events {
			if err := emit(event.EventType, event); err != nil {
				return errors.WithStack(err)
			}
			cursor = event.ID
		}

		if job.Status != lastStatus {
			if err := emit("status", job); err != nil {
				return errors.WithStack(err)
			}
			lastStatus = job.Status
		}

		if job.Terminal() {
			// Events appended between the two reads above are caught here so
			// the feed never ends with an outcome missing.
			events, err := s.jobService.ListEvents(ctx, ListEventsOptions{JobID: jobID, AfterID: &cursor})
			if err != nil {
				return errors.WithStack(err)
			}
			for _, event := range events {
				if err := emit(event.EventType, event); err != nil {
					return errors.WithStack(err)
				}
				cursor = event.ID
			}
			return errors.WithStack(emit("done", job))
		}

		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}
