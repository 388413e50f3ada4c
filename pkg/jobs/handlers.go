package jobs

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

type handler struct {
	jobService  *Service
	bookService *books.Service
	streamer    *Streamer
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	bookIDs, err := h.bookService.ListBookIDsForEnrichment(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	job := &models.MetadataJob{
		Status:     models.MetadataJobStatusQueued,
		TotalBooks: len(bookIDs),
	}
	if err := h.jobService.CreateJob(ctx, job); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, job))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	job, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListJobsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	jobs, err := h.jobService.ListJobs(ctx, ListJobsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Jobs []*models.MetadataJob `json:"jobs"`
	}{jobs}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	job, err := h.jobService.CancelJob(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) events(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	// Bind params.
	params := ListEventsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// 404 for unknown jobs rather than an empty event list.
	if _, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	events, err := h.jobService.ListEvents(ctx, ListEventsOptions{
		JobID:   id,
		AfterID: params.AfterID,
		Limit:   params.Limit,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Events []*models.MetadataJobEvent `json:"events"`
	}{events}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) stream(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	// Bind params.
	params := StreamJobQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Resolve the job before committing the stream headers so an unknown id
	// still gets a regular 404 response.
	if _, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	emit := func(event string, data interface{}) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return errors.WithStack(err)
		}
		if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return errors.WithStack(err)
		}
		resp.Flush()
		return nil
	}

	err = h.streamer.Stream(ctx, id, params.AfterEventID, emit)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.WithStack(err)
	}
	return nil
}
