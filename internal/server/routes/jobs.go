package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/commscope/backend/internal/queue"
	"github.com/commscope/backend/internal/server/middleware"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/store"
	"github.com/commscope/backend/pkg/viz"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type jobResponse struct {
	store.Job
	Result      json.RawMessage `json:"result,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
}

// CreateTopicJobHandler queues a topic modeling run.
func CreateTopicJobHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if !app.JobsEnabled() {
		return errorJSON(c, http.StatusServiceUnavailable, "Jobs are not enabled")
	}
	ctx := c.Request().Context()

	params, err := requestParams(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	opts, err := viz.DecodeTopicOptions(params)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	id, err := gonanoid.New()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	job := store.Job{ID: id, Kind: queue.TopicQueue, Status: store.JobPending, Options: raw}
	if err := app.Jobs.CreateJob(ctx, job); err != nil {
		logger.Error("Failed to create job", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	if err := queue.EnqueueTopicJob(ctx, app.Queue, id, opts); err != nil {
		logger.Error("Failed to enqueue job", "job_id", id, "err", err)
		_ = app.Jobs.FailJob(ctx, id, "could not be queued")
		return errorJSON(c, http.StatusInternalServerError, "Failed to queue job")
	}

	logger.Info("Job queued", "job_id", id, "method", opts.Method)
	return c.JSON(http.StatusAccepted, map[string]string{"id": id, "status": string(store.JobPending)})
}

// GetJobHandler reports a job's status. Completed jobs carry their result
// and a download link for it.
func GetJobHandler(c echo.Context) error {
	type jobParams struct {
		ID string `param:"id" validate:"required,max=64"`
	}

	app := c.(*middleware.AppContext).App
	if !app.JobsEnabled() {
		return errorJSON(c, http.StatusServiceUnavailable, "Jobs are not enabled")
	}

	params := new(jobParams)
	if err := c.Bind(params); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid job id")
	}
	if err := c.Validate(params); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid job id")
	}

	ctx := c.Request().Context()
	job, err := app.Jobs.GetJob(ctx, params.ID)
	if errors.Is(err, store.ErrJobNotFound) {
		return errorJSON(c, http.StatusNotFound, "Job not found")
	}
	if err != nil {
		logger.Error("Failed to load job", "job_id", params.ID, "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	res := jobResponse{Job: job}
	if job.Status == store.JobCompleted && job.ResultKey != "" {
		data, err := app.Results.Get(ctx, job.ResultKey)
		if err != nil {
			logger.Error("Failed to read job result", "job_id", job.ID, "err", err)
			return errorJSON(c, http.StatusInternalServerError, "Could not read job result")
		}
		res.Result = data
		if link, err := app.Results.Link(ctx, job.ResultKey); err == nil {
			res.DownloadURL = link
		} else {
			logger.Warn("Failed to sign result link", "job_id", job.ID, "err", err)
		}
	}
	return c.JSON(http.StatusOK, res)
}
