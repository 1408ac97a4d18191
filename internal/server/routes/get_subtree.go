package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"atlas/internal/server/middleware"
	"atlas/pkg/common"
	"atlas/pkg/hierarchy"
	"atlas/pkg/store"
)

// GetCommunitySubtreeHandler returns the isolator subtree of a community:
// the root of its branch plus every descendant, over the communities of the
// latest stored layout.
func GetCommunitySubtreeHandler(c echo.Context) error {
	type getSubtreeParams struct {
		GraphID     string `param:"id" validate:"required"`
		CommunityID string `param:"community_id" validate:"required"`
	}

	type getSubtreeResponse struct {
		Message     string              `json:"message"`
		Communities []*common.Community `json:"data,omitempty"`
	}

	params := new(getSubtreeParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getSubtreeResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getSubtreeResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, getSubtreeResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	layouts := c.(*middleware.AppContext).App.Store

	result, err := layouts.GetLatestLayout(ctx, params.GraphID)
	if errors.Is(err, store.ErrNoLayout) {
		return c.JSON(http.StatusNotFound, getSubtreeResponse{
			Message: "No layout computed for this graph",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, getSubtreeResponse{
			Message: "Internal server error",
		})
	}

	var selected *common.Community
	for _, comm := range result.Communities {
		if comm.ID == params.CommunityID || comm.HumanID == params.CommunityID {
			selected = comm
			break
		}
	}
	if selected == nil {
		return c.JSON(http.StatusNotFound, getSubtreeResponse{
			Message: "Community not found",
		})
	}

	subtree := hierarchy.SelectSubtree(selected, result.Communities)

	return c.JSON(http.StatusOK, getSubtreeResponse{
		Message:     "Subtree found",
		Communities: subtree,
	})
}
