package routes

import (
	"errors"
	"net/http"

	"github.com/commscope/backend/internal/server/middleware"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/viz"

	"github.com/labstack/echo/v4"
)

// ListVisualizationsHandler lists the registered visualizations with the
// JSON Schema of their options.
func ListVisualizationsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, app.Registry.List())
}

// VisualizationDataHandler returns the data of one visualization.
func VisualizationDataHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	name := c.Param("name")

	params, err := requestParams(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	data, err := app.Registry.Data(c.Request().Context(), name, params)
	if err != nil {
		var optsErr *viz.OptionsError
		switch {
		case errors.Is(err, viz.ErrNotFound):
			return errorJSON(c, http.StatusNotFound, err.Error())
		case errors.As(err, &optsErr):
			return errorJSON(c, http.StatusBadRequest, optsErr.Error())
		default:
			logger.Error("Visualization failed", "name", name, "err", err)
			return errorJSON(c, http.StatusInternalServerError, err.Error())
		}
	}
	logger.Debug("Visualization served", "name", name, "params", len(params))
	return c.JSON(http.StatusOK, data)
}
