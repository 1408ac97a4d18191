package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/common"
	"atlas/pkg/store"
)

// GetLayoutHandler returns the latest persisted layout run of a graph.
func GetLayoutHandler(c echo.Context) error {
	type getLayoutParams struct {
		GraphID string `param:"id" validate:"required"`
	}

	type getLayoutResponse struct {
		Message string              `json:"message"`
		Layout  *common.GraphLayout `json:"data,omitempty"`
	}

	params := new(getLayoutParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getLayoutResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getLayoutResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, getLayoutResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	layouts := c.(*middleware.AppContext).App.Store

	result, err := layouts.GetLatestLayout(ctx, params.GraphID)
	if errors.Is(err, store.ErrNoLayout) {
		return c.JSON(http.StatusNotFound, getLayoutResponse{
			Message: "No layout computed for this graph",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, getLayoutResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getLayoutResponse{
		Message: "Layout found",
		Layout:  result,
	})
}
