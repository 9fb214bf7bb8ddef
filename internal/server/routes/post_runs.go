package routes

import (
	"encoding/json"
	"net/http"

	"github.com/act-placemat/loom/internal/queue"
	"github.com/act-placemat/loom/internal/server/middleware"
	"github.com/act-placemat/loom/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// TriggerRunHandler queues a discovery run. Passing the ID of an
// interrupted run resumes it.
func TriggerRunHandler(c echo.Context) error {
	type triggerRunBody struct {
		RunID string `json:"run_id"`
	}
	type triggerRunResponse struct {
		Message string `json:"message"`
		RunID   string `json:"run_id,omitempty"`
	}

	data := new(triggerRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, triggerRunResponse{
			Message: "Invalid request body",
		})
	}

	runID := data.RunID
	if runID == "" {
		runID = gonanoid.Must()
	}

	app := c.(*middleware.AppContext).App
	msg, err := json.Marshal(queue.RunMsg{
		Message: "Discovery run triggered",
		RunID:   runID,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, triggerRunResponse{
			Message: "Failed to encode run message",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.RunQueue, msg); err != nil {
		logger.Error("[Server] Failed to queue run", "run", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, triggerRunResponse{
			Message: "Failed to queue run",
		})
	}

	return c.JSON(http.StatusAccepted, triggerRunResponse{
		Message: "Run queued",
		RunID:   runID,
	})
}
