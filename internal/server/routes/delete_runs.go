package routes

import (
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/link"
	"github.com/act-placemat/loom/pkg/logger"

	"github.com/labstack/echo/v4"
)

// UndoRunHandler reverts every edge a run auto-linked.
func UndoRunHandler(c echo.Context) error {
	type undoRunResponse struct {
		Message string `json:"message"`
		Removed int    `json:"removed"`
	}

	runID := c.Param("id")
	app := c.(*middleware.AppContext).App

	linker := link.NewLinker(app.Store, nil)
	removed, err := linker.Undo(c.Request().Context(), runID)
	if err != nil {
		logger.Error("[Server] Undo failed", "run", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, undoRunResponse{
			Message: "Failed to undo run",
			Removed: removed,
		})
	}

	return c.JSON(http.StatusOK, undoRunResponse{
		Message: "Run undone",
		Removed: removed,
	})
}
