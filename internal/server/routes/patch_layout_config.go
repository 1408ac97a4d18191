package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/queue"
	"atlas/internal/server/middleware"
	"atlas/pkg/layout"
	"atlas/pkg/store"
)

// UpdateLayoutConfigHandler enqueues a re-layout of a graph with updated
// tuning parameters. The run is seeded from the stored node positions, so
// the universe reorganizes instead of being rebuilt from scratch.
func UpdateLayoutConfigHandler(c echo.Context) error {
	type updateConfigParams struct {
		GraphID string             `param:"id" validate:"required"`
		Config  layout.ConfigPatch `json:"config"`
	}

	type updateConfigResponse struct {
		Message string `json:"message"`
		GraphID string `json:"graph_id,omitempty"`
	}

	params := new(updateConfigParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, updateConfigResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, updateConfigResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, updateConfigResponse{
			Message: "Unauthorized",
		})
	}

	cfg := layout.DefaultConfig()
	if _, err := cfg.Apply(params.Config); err != nil {
		return c.JSON(http.StatusBadRequest, updateConfigResponse{
			Message: err.Error(),
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	sources, err := app.Store.GetRunSources(ctx, params.GraphID)
	if errors.Is(err, store.ErrNoLayout) {
		return c.JSON(http.StatusNotFound, updateConfigResponse{
			Message: "No layout computed for this graph",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, updateConfigResponse{
			Message: "Internal server error",
		})
	}

	err = queue.PublishLayoutRequest(app.Queue, queue.LayoutRequestMsg{
		GraphID:          params.GraphID,
		EntitiesKey:      sources.EntitiesKey,
		RelationshipsKey: sources.RelationshipsKey,
		CommunitiesKey:   sources.CommunitiesKey,
		Config:           &params.Config,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, updateConfigResponse{
			Message: "Failed to enqueue re-layout",
		})
	}

	return c.JSON(http.StatusAccepted, updateConfigResponse{
		Message: "Re-layout enqueued",
		GraphID: params.GraphID,
	})
}
