package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/queue"
	"atlas/internal/server/middleware"
	"atlas/internal/timing"
	"atlas/pkg/layout"
)

// RunLayoutHandler enqueues a full layout run for a graph. The simulation
// itself happens in the worker; this only validates the request and
// publishes it.
func RunLayoutHandler(c echo.Context) error {
	type runLayoutParams struct {
		GraphID          string              `param:"id" validate:"required"`
		EntitiesKey      string              `json:"entities_key" validate:"required"`
		RelationshipsKey string              `json:"relationships_key" validate:"required"`
		CommunitiesKey   string              `json:"communities_key"`
		Config           *layout.ConfigPatch `json:"config"`
		Reseed           bool                `json:"reseed"`
		Seed             int64               `json:"seed"`
	}

	type runLayoutResponse struct {
		Message             string `json:"message"`
		GraphID             string `json:"graph_id,omitempty"`
		EstimatedDurationMs *int64 `json:"estimated_duration_ms,omitempty"`
	}

	params := new(runLayoutParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, runLayoutResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, runLayoutResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, runLayoutResponse{
			Message: "Unauthorized",
		})
	}

	// Reject invalid tuning overrides before they reach the worker.
	if params.Config != nil {
		cfg := layout.DefaultConfig()
		if _, err := cfg.Apply(*params.Config); err != nil {
			return c.JSON(http.StatusBadRequest, runLayoutResponse{
				Message: err.Error(),
			})
		}
	}

	app := c.(*middleware.AppContext).App
	err := queue.PublishLayoutRequest(app.Queue, queue.LayoutRequestMsg{
		GraphID:          params.GraphID,
		EntitiesKey:      params.EntitiesKey,
		RelationshipsKey: params.RelationshipsKey,
		CommunitiesKey:   params.CommunitiesKey,
		Config:           params.Config,
		Reseed:           params.Reseed,
		Seed:             params.Seed,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, runLayoutResponse{
			Message: "Failed to enqueue layout run",
		})
	}

	resp := runLayoutResponse{
		Message: "Layout run enqueued",
		GraphID: params.GraphID,
	}
	if estimate, err := timing.PredictLayoutRunTime(c.Request().Context(), params.GraphID, app.DBConn); err == nil && estimate > 0 {
		resp.EstimatedDurationMs = &estimate
	}

	return c.JSON(http.StatusAccepted, resp)
}
