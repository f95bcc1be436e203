package routes

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/commscope/backend/internal/server/middleware"
	"github.com/commscope/backend/pkg/chart"
	"github.com/commscope/backend/pkg/common"
	"github.com/commscope/backend/pkg/loader"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/topic"
	"github.com/commscope/backend/pkg/viz"

	"github.com/labstack/echo/v4"
)

// ChartHandler renders a chart page. Supported names are heatmap, network
// and topics.
func ChartHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	deps := app.Deps

	var (
		r   chart.Renderer
		err error
	)
	switch c.Param("name") {
	case "heatmap":
		var m *common.SimilarityMatrix
		m, err = loader.LoadSimilarity(ctx, deps.Files, deps.Config.SimilarityFile)
		if err == nil {
			r = chart.Heatmap(m)
		}
	case "network":
		var g *common.Graph
		g, err = loader.LoadGraph(ctx, deps.Files, deps.Config.CommunicationFile)
		if err == nil {
			r = chart.Network(g)
		}
	case "topics":
		r, err = topicChart(c, deps)
	default:
		return errorJSON(c, http.StatusNotFound, "Chart not found")
	}

	var optsErr *viz.OptionsError
	switch {
	case errors.As(err, &optsErr):
		return errorJSON(c, http.StatusBadRequest, optsErr.Error())
	case err != nil:
		logger.Warn("Chart data unavailable", "chart", c.Param("name"), "err", err)
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	}

	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		logger.Error("Chart rendering failed", "chart", c.Param("name"), "err", err)
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func topicChart(c echo.Context, deps viz.Deps) (chart.Renderer, error) {
	params, err := requestParams(c)
	if err != nil {
		return nil, &viz.OptionsError{Err: err}
	}
	opts, err := viz.DecodeTopicOptions(params)
	if err != nil {
		return nil, err
	}
	view := &viz.TopicModeling{Deps: deps}
	out, err := view.Report(c.Request().Context(), opts)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case *topic.Report:
		return chart.TopicProfiles(v), nil
	case viz.Failure:
		return nil, errors.New(v.Error)
	default:
		return nil, errors.New("unexpected topic modeling result")
	}
}
