package routes

import (
	"errors"
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/common"
	"github.com/act-placemat/loom/pkg/health"
	"github.com/act-placemat/loom/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetProjectHealthHandler returns the project's health score and needs.
// A cold cache is filled on the fly: health is always recomputable.
func GetProjectHealthHandler(c echo.Context) error {
	type projectHealthResponse struct {
		Message string             `json:"message"`
		Score   common.HealthScore `json:"score"`
		Needs   []common.Need      `json:"needs"`
	}

	projectID := c.Param("id")
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	score, needs, err := app.Store.GetHealthCache(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		score, needs, err = health.NewScorer(app.Store).ScoreProject(ctx, projectID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, projectHealthResponse{
				Message: "Project not found",
			})
		}
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, projectHealthResponse{
			Message: "Failed to compute health",
		})
	}
	if needs == nil {
		needs = []common.Need{}
	}

	return c.JSON(http.StatusOK, projectHealthResponse{
		Message: "OK",
		Score:   score,
		Needs:   needs,
	})
}
