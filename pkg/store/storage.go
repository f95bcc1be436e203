// Package store persists asynchronous topic-modeling jobs and caches text
// embeddings. The pgx subpackage implements both on PostgreSQL with
// pgvector; Memory serves single-process deployments and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// JobStatus is the lifecycle state of a job: pending, then running, then
// completed or failed.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one queued visualization run.
type Job struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Status    JobStatus       `json:"status"`
	Options   json.RawMessage `json:"options,omitempty"`
	ResultKey string          `json:"result_key,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobStore keeps track of jobs. Status changes only move forward; updating
// a job that is not in the expected state returns ErrJobNotFound.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	StartJob(ctx context.Context, id string) error
	CompleteJob(ctx context.Context, id string, resultKey string) error
	FailJob(ctx context.Context, id string, reason string) error
}

// EmbeddingCache stores embeddings by model and content hash.
type EmbeddingCache interface {
	// GetEmbeddings returns the cached vectors of the given hashes. Missing
	// hashes are absent from the result.
	GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error
}
