package routes

import (
	"encoding/json"
	"net/http"

	"github.com/act-placemat/loom/internal/queue"
	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/source"

	"github.com/labstack/echo/v4"
)

// IngestContactsHandler queues a contact batch for identity resolution.
// Resolution happens on the worker, which consumes one batch at a time,
// so merges into the same person never race.
func IngestContactsHandler(c echo.Context) error {
	type ingestBody struct {
		SourceName string              `json:"source_name" validate:"required"`
		Contacts   []source.RawContact `json:"contacts" validate:"required,min=1,dive"`
	}
	type ingestResponse struct {
		Message string `json:"message"`
		Queued  int    `json:"queued,omitempty"`
	}

	data := new(ingestBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}

	msg, err := json.Marshal(queue.IngestMsg{
		Message:    "Contact batch queued",
		SourceName: data.SourceName,
		Contacts:   data.Contacts,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Failed to encode ingest message",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, msg); err != nil {
		logger.Error("[Server] Failed to queue ingest", "source", data.SourceName, "err", err)
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Failed to queue ingest",
		})
	}

	return c.JSON(http.StatusAccepted, ingestResponse{
		Message: "Contact batch queued",
		Queued:  len(data.Contacts),
	})
}
