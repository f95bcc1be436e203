package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// From lists the states a job may be in before moving to the given status.
// A running job can be started again when its message is redelivered.
func From(to JobStatus) []JobStatus {
	switch to {
	case JobRunning:
		return []JobStatus{JobPending, JobRunning}
	case JobCompleted, JobFailed:
		return []JobStatus{JobPending, JobRunning}
	default:
		return nil
	}
}

// Memory is an in-process JobStore and EmbeddingCache.
type Memory struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	vectors map[string]map[string][]float32
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		jobs:    map[string]Job{},
		vectors: map[string]map[string][]float32{},
		now:     time.Now,
	}
}

func (m *Memory) CreateJob(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	if job.Status == "" {
		job.Status = JobPending
	}
	job.CreatedAt, job.UpdatedAt = now, now
	m.jobs[job.ID] = job
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

func (m *Memory) move(id string, to JobStatus, update func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !slices.Contains(From(to), job.Status) {
		return ErrJobNotFound
	}
	job.Status = to
	job.UpdatedAt = m.now().UTC()
	if update != nil {
		update(&job)
	}
	m.jobs[id] = job
	return nil
}

func (m *Memory) StartJob(_ context.Context, id string) error {
	return m.move(id, JobRunning, nil)
}

func (m *Memory) CompleteJob(_ context.Context, id string, resultKey string) error {
	return m.move(id, JobCompleted, func(j *Job) { j.ResultKey = resultKey })
}

func (m *Memory) FailJob(_ context.Context, id string, reason string) error {
	return m.move(id, JobFailed, func(j *Job) { j.Error = reason })
}

func (m *Memory) GetEmbeddings(_ context.Context, model string, hashes []string) (map[string][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string][]float32{}
	for _, h := range hashes {
		if v, ok := m.vectors[model][h]; ok {
			out[h] = v
		}
	}
	return out, nil
}

func (m *Memory) PutEmbeddings(_ context.Context, model string, vectors map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vectors[model] == nil {
		m.vectors[model] = map[string][]float32{}
	}
	for h, v := range vectors {
		m.vectors[model][h] = v
	}
	return nil
}
