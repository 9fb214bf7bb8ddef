package routes

import (
	"errors"
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/link"
	"github.com/act-placemat/loom/pkg/store"

	"github.com/labstack/echo/v4"
)

// ApproveEdgeHandler promotes a queued edge to human-approved.
func ApproveEdgeHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	linker := link.NewLinker(app.Store, nil)

	if err := linker.Approve(c.Request().Context(), c.Param("id")); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Edge approved"})
}

// RejectEdgeHandler rejects a queued edge with an optional reason.
func RejectEdgeHandler(c echo.Context) error {
	type rejectEdgeBody struct {
		Reason string `json:"reason"`
	}

	data := new(rejectEdgeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	linker := link.NewLinker(app.Store, nil)

	if err := linker.Reject(c.Request().Context(), c.Param("id"), data.Reason); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Edge rejected"})
}

func reviewError(c echo.Context, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Edge not found"})
	}
	return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
}
