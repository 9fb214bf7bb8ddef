package routes

import (
	"net/http"

	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/common"

	"github.com/labstack/echo/v4"
)

// GetProjectsHandler lists all tracked projects.
func GetProjectsHandler(c echo.Context) error {
	type projectsResponse struct {
		Message  string           `json:"message"`
		Projects []common.Project `json:"projects"`
	}

	app := c.(*middleware.AppContext).App
	projects, err := app.Store.ListProjects(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, projectsResponse{
			Message: "Failed to load projects",
		})
	}
	if projects == nil {
		projects = []common.Project{}
	}

	return c.JSON(http.StatusOK, projectsResponse{
		Message:  "OK",
		Projects: projects,
	})
}

// GetProjectEdgesHandler lists the relationship edges touching one
// project, rejected ones included: the full history is part of the audit
// surface.
func GetProjectEdgesHandler(c echo.Context) error {
	type projectEdgesResponse struct {
		Message string                `json:"message"`
		Edges   []common.Relationship `json:"edges"`
	}

	app := c.(*middleware.AppContext).App
	edges, err := app.Store.ListRelationships(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, projectEdgesResponse{
			Message: "Failed to load edges",
		})
	}
	if edges == nil {
		edges = []common.Relationship{}
	}

	return c.JSON(http.StatusOK, projectEdgesResponse{
		Message: "OK",
		Edges:   edges,
	})
}
