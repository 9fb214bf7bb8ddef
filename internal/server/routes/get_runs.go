package routes

import (
	"errors"
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetRunReportHandler returns the stored report of a finished run.
func GetRunReportHandler(c echo.Context) error {
	runID := c.Param("id")
	app := c.(*middleware.AppContext).App

	report, err := app.Store.GetRunReport(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load run report"})
	}

	return c.JSONBlob(http.StatusOK, report)
}
