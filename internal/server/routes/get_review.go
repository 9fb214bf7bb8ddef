package routes

import (
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/common"

	"github.com/labstack/echo/v4"
)

// GetReviewQueueHandler lists edges awaiting a human decision, highest
// confidence first.
func GetReviewQueueHandler(c echo.Context) error {
	type reviewQueueResponse struct {
		Message string                `json:"message"`
		Edges   []common.Relationship `json:"edges"`
	}

	app := c.(*middleware.AppContext).App
	edges, err := app.Store.ListReviewQueue(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, reviewQueueResponse{
			Message: "Failed to load review queue",
		})
	}
	if edges == nil {
		edges = []common.Relationship{}
	}

	return c.JSON(http.StatusOK, reviewQueueResponse{
		Message: "OK",
		Edges:   edges,
	})
}
