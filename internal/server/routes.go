package server

import (
	"github.com/commscope/backend/internal/server/middleware"
	"github.com/commscope/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	// Visualization routes
	e.GET("/", routes.ListVisualizationsHandler)
	e.GET("/data/:name", routes.VisualizationDataHandler)
	e.POST("/data/:name", routes.VisualizationDataHandler)
	e.GET("/charts/:name", routes.ChartHandler)

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Job routes
	apiRoutes.POST("/jobs/topics", routes.CreateTopicJobHandler, middleware.RequirePermission(middleware.PermJobCreate))
	apiRoutes.GET("/jobs/:id", routes.GetJobHandler, middleware.RequirePermission(middleware.PermJobView))
}
