package server

import (
	"atlas/internal/server/middleware"
	"atlas/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Layout routes
	apiRoutes.POST("/graphs/:id/layout", routes.RunLayoutHandler, middleware.RequirePermission("layout.run"))
	apiRoutes.GET("/graphs/:id/layout", routes.GetLayoutHandler, middleware.RequirePermission("layout.view"))
	apiRoutes.PATCH("/graphs/:id/layout/config", routes.UpdateLayoutConfigHandler, middleware.RequirePermission("layout.configure"))
	apiRoutes.GET("/graphs/:id/layout/nearest", routes.GetNearestNodesHandler, middleware.RequirePermission("layout.view"))

	// Community routes
	apiRoutes.GET("/graphs/:id/communities/:community_id/subtree", routes.GetCommunitySubtreeHandler, middleware.RequirePermission("layout.view"))
}
