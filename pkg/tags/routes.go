package tags

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers tag routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		tagService: NewService(db),
	}

	g.GET("", h.list)
	g.DELETE("/:id", h.delete)
}
