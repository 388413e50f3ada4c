package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/enrichment"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/jobs"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Worker polls for queued enrichment jobs and runs them one at a time. Jobs
// are intentionally not processed in parallel: provider rate limits dominate
// and event ordering must stay deterministic.
type Worker struct {
	config *config.Config
	log    logger.Logger

	jobService *jobs.Service
	engine     *jobs.Engine

	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, jobService *jobs.Service, bookService *books.Service, provider metadata.Provider) (*Worker, error) {
	pipeline, err := enrichment.NewPipeline(bookService, provider, cfg.InferenceOrder)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Worker{
		config: cfg,
		log:    logger.New(),

		jobService: jobService,
		engine:     jobs.NewEngine(jobService, bookService, pipeline),

		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *Worker) Start() {
	go w.processJobs()
}

func (w *Worker) processJobs() {
	timer := time.NewTimer(w.config.WorkerPollInterval)

	for {
		select {
		case <-w.shutdown:
			// A job already running finishes before this is reached, since
			// the loop only blocks here between jobs.
			w.done <- struct{}{}
			return
		case <-timer.C:
			w.runNext()
			timer.Reset(w.config.WorkerPollInterval)
		}
	}
}

func (w *Worker) runNext() {
	job, err := w.jobService.NextQueuedJob(context.Background())
	if err != nil {
		if !errors.Is(err, errcodes.NotFound("Job")) {
			w.log.Err(err).Error("next queued job error")
		}
		return
	}

	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String())
	ctx := log.WithContext(context.Background())

	if err := w.engine.Run(ctx, job); err != nil {
		log.Err(err).Error("enrichment job error")
	}
}

func (w *Worker) Shutdown() {
	close(w.shutdown)
	<-w.done
}
