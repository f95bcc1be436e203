package routes

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/commscope/backend/pkg/viz"

	"github.com/labstack/echo/v4"
)

// requestParams merges query, form and JSON body parameters. Later sources
// win: a JSON body field overrides a form field of the same name.
func requestParams(c echo.Context) (viz.Params, error) {
	params := viz.Params{}
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	req := c.Request()
	if req.Method == http.MethodGet || req.Body == nil {
		return params, nil
	}
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	switch mediaType {
	case echo.MIMEApplicationForm, echo.MIMEMultipartForm:
		form, err := c.FormParams()
		if err != nil {
			return nil, err
		}
		for k, v := range form {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	case echo.MIMEApplicationJSON:
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		for k, v := range body {
			params[k] = v
		}
	}
	return params, nil
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
