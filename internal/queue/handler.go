package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/commscope/backend/internal/storage"
	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/logger"
	"github.com/commscope/backend/pkg/store"
	"github.com/commscope/backend/pkg/viz"
)

// storeAttempts bounds in-process retries of result uploads and job updates
// before the message goes back to the retry queue.
const storeAttempts = 3

// ErrInvalidMessage marks messages that can never be processed.
var ErrInvalidMessage = errors.New("invalid job message")

// TopicJobMsg asks the worker to run topic modeling for a job.
type TopicJobMsg struct {
	JobID   string          `json:"job_id"`
	Options json.RawMessage `json:"options,omitempty"`
}

// EnqueueTopicJob publishes a topic modeling job.
func EnqueueTopicJob(ctx context.Context, p Publisher, jobID string, opts viz.TopicOptions) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	data, err := json.Marshal(TopicJobMsg{JobID: jobID, Options: raw})
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicQueue, data)
}

// Locker serializes work on a key across workers.
type Locker interface {
	WithLease(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// TopicJobs runs queued topic modeling jobs and stores their results.
// Locks is optional; without it a redelivered message may run twice.
type TopicJobs struct {
	Jobs    store.JobStore
	Results storage.Results
	View    *viz.TopicModeling
	Locks   Locker
}

func decodeTopicJob(body []byte) (TopicJobMsg, error) {
	var msg TopicJobMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.JobID == "" {
		return msg, fmt.Errorf("%w: missing job_id", ErrInvalidMessage)
	}
	return msg, nil
}

// Process handles one message. A returned error means the message should be
// retried, unless it wraps ErrInvalidMessage. Jobs whose analysis fails are
// marked failed and not retried.
func (h *TopicJobs) Process(ctx context.Context, body []byte) error {
	msg, err := decodeTopicJob(body)
	if err != nil {
		return err
	}
	if h.Locks == nil {
		return h.run(ctx, msg)
	}
	return h.Locks.WithLease(ctx, "job:"+msg.JobID, func(ctx context.Context) error {
		return h.run(ctx, msg)
	})
}

func (h *TopicJobs) run(ctx context.Context, msg TopicJobMsg) error {
	if err := h.Jobs.StartJob(ctx, msg.JobID); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			logger.Warn("[Queue] Skipping job that is unknown or finished", "job_id", msg.JobID)
			return nil
		}
		return fmt.Errorf("start job: %w", err)
	}

	params := viz.Params{}
	if len(msg.Options) > 0 {
		if err := json.Unmarshal(msg.Options, &params); err != nil {
			return h.fail(ctx, msg.JobID, fmt.Sprintf("invalid options: %v", err))
		}
	}
	opts, err := viz.DecodeTopicOptions(params)
	if err != nil {
		return h.fail(ctx, msg.JobID, err.Error())
	}

	result, err := h.View.Report(ctx, opts)
	if err != nil {
		return fmt.Errorf("topic modeling: %w", err)
	}
	if f, ok := result.(viz.Failure); ok {
		return h.fail(ctx, msg.JobID, f.Error)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return h.fail(ctx, msg.JobID, fmt.Sprintf("encode result: %v", err))
	}
	key := storage.ResultKey(msg.JobID)
	err = util.RetryErrWithContext(ctx, storeAttempts, func(ctx context.Context) error {
		return h.Results.Put(ctx, key, data)
	})
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	err = util.RetryErrWithContext(ctx, storeAttempts, func(ctx context.Context) error {
		return h.Jobs.CompleteJob(ctx, msg.JobID, key)
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	logger.Info("[Queue] Job completed", "job_id", msg.JobID, "result", key)
	return nil
}

func (h *TopicJobs) fail(ctx context.Context, jobID, reason string) error {
	logger.Warn("[Queue] Job failed", "job_id", jobID, "reason", reason)
	if err := h.Jobs.FailJob(ctx, jobID, reason); err != nil && !errors.Is(err, store.ErrJobNotFound) {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// GiveUp marks the job of a message that will not be retried as failed.
func (h *TopicJobs) GiveUp(ctx context.Context, body []byte, cause error) {
	msg, err := decodeTopicJob(body)
	if err != nil {
		return
	}
	if err := h.fail(ctx, msg.JobID, cause.Error()); err != nil {
		logger.Error("[Queue] Failed to mark job failed", "job_id", msg.JobID, "err", err)
	}
}
