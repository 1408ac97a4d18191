package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/common"
	"atlas/pkg/store"
)

// GetNearestNodesHandler returns the k nodes of the latest layout closest
// to a point in space. The distance ranking runs in the database over the
// stored position vectors.
func GetNearestNodesHandler(c echo.Context) error {
	type nearestParams struct {
		GraphID string  `param:"id" validate:"required"`
		X       float64 `query:"x"`
		Y       float64 `query:"y"`
		Z       float64 `query:"z"`
		Limit   int     `query:"limit"`
	}

	type nearestResponse struct {
		Message string              `json:"message"`
		Nodes   []store.NearestNode `json:"data,omitempty"`
	}

	params := new(nearestParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, nearestResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, nearestResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, nearestResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	layouts := c.(*middleware.AppContext).App.Store

	at := common.Vec3{X: params.X, Y: params.Y, Z: params.Z}
	nodes, err := layouts.NearestNodes(ctx, params.GraphID, at, params.Limit)
	if errors.Is(err, store.ErrNoLayout) {
		return c.JSON(http.StatusNotFound, nearestResponse{
			Message: "No layout computed for this graph",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, nearestResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, nearestResponse{
		Message: "Nearest nodes found",
		Nodes:   nodes,
	})
}
