package server

import (
	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Discovery run routes
	apiRoutes.POST("/runs", routes.TriggerRunHandler, middleware.RequirePermission("run.trigger"))
	apiRoutes.GET("/runs/:id", routes.GetRunReportHandler, middleware.RequirePermission("run.view"))
	apiRoutes.DELETE("/runs/:id", routes.UndoRunHandler, middleware.RequirePermission("run.undo"))

	// Review queue routes
	apiRoutes.GET("/review", routes.GetReviewQueueHandler, middleware.RequirePermission("review.view"))
	apiRoutes.POST("/review/:id/approve", routes.ApproveEdgeHandler, middleware.RequirePermission("review.decide"))
	apiRoutes.POST("/review/:id/reject", routes.RejectEdgeHandler, middleware.RequirePermission("review.decide"))

	// Project routes
	apiRoutes.GET("/projects", routes.GetProjectsHandler, middleware.RequirePermission("project.view"))
	apiRoutes.GET("/projects/:id/edges", routes.GetProjectEdgesHandler, middleware.RequirePermission("project.view"))
	apiRoutes.GET("/projects/:id/health", routes.GetProjectHealthHandler, middleware.RequirePermission("project.view"))

	// Contact ingest routes
	apiRoutes.POST("/contacts", routes.IngestContactsHandler, middleware.RequirePermission("contact.ingest"))
}
