package jobs

import (
	"github.com/hondana/hondana/pkg/books"
	"github.com/hondana/hondana/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers metadata job routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) {
	jobService := NewService(db)

	h := &handler{
		jobService:  jobService,
		bookService: books.NewService(db),
		streamer:    NewStreamer(jobService, cfg.StreamPollInterval),
	}

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.DELETE("/:id", h.cancel)
	g.GET("/:id/events", h.events)
	g.GET("/:id/stream", h.stream)
}
