package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/commscope/backend/pkg/store"
	"github.com/commscope/backend/pkg/topic"
	"github.com/commscope/backend/pkg/viz"

	"github.com/rabbitmq/amqp091-go"
)

type memFiles map[string]string

func (m memFiles) GetFile(_ context.Context, path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return []byte(s), nil
}

type memResults struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
	// failures makes the next Put calls fail with errFlaky.
	failures int
	puts     int
}

var errFlaky = errors.New("connection reset")

func (r *memResults) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[key], nil
}

func (r *memResults) Put(_ context.Context, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts++
	if r.err != nil {
		return r.err
	}
	if r.failures > 0 {
		r.failures--
		return errFlaky
	}
	if r.data == nil {
		r.data = map[string][]byte{}
	}
	r.data[key] = data
	return nil
}

func (r *memResults) Link(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

type recordingPublisher struct {
	queue string
	data  []byte
}

func (p *recordingPublisher) Publish(_ context.Context, queueName string, data []byte) error {
	p.queue, p.data = queueName, data
	return nil
}

var contents = []string{
	"The mining permit for the northern reef was approved after the cash payment",
	"Send the cash to the harbor office before the permit review",
	"Fishing quotas at the harbor are being reviewed by the council",
	"The council wants the mining permit reviewed again next week",
	"Cash payment confirmed, the harbor office will stay quiet",
	"Northern reef survey shows damage from illegal mining activity",
	"Council meeting about fishing quotas moved to Friday",
	"Harbor office asked about the reef survey results",
}

func commGraph(t *testing.T, messages []string) string {
	t.Helper()
	links := make([]map[string]any, len(messages))
	for i, c := range messages {
		links[i] = map[string]any{
			"source":   "Nadia Conti",
			"target":   "Mako",
			"event_id": fmt.Sprintf("m%d", i),
			"datetime": fmt.Sprintf("2040-10-%02dT09:00:00", i+1),
			"content":  c,
		}
	}
	b, err := json.Marshal(map[string]any{
		"nodes": []map[string]any{
			{"id": "Nadia Conti", "type": "Entity", "sub_type": "Person"},
			{"id": "Mako", "type": "Entity", "sub_type": "Vessel"},
		},
		"links": links,
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func newTopicJobs(files memFiles, results *memResults) (*TopicJobs, *store.Memory) {
	jobs := store.NewMemory()
	return &TopicJobs{
		Jobs:    jobs,
		Results: results,
		View: &viz.TopicModeling{Deps: viz.Deps{
			Config: viz.Config{CommunicationFile: "comm.json"},
			Files:  files,
			Topics: topic.NewRunner(nil),
		}},
	}, jobs
}

func enqueue(t *testing.T, jobs *store.Memory, id string, opts viz.TopicOptions) []byte {
	t.Helper()
	if err := jobs.CreateJob(context.Background(), store.Job{ID: id, Kind: TopicQueue}); err != nil {
		t.Fatal(err)
	}
	pub := &recordingPublisher{}
	if err := EnqueueTopicJob(context.Background(), pub, id, opts); err != nil {
		t.Fatal(err)
	}
	if pub.queue != TopicQueue {
		t.Fatalf("published to %q", pub.queue)
	}
	return pub.data
}

func TestProcessTopicJobCompletes(t *testing.T) {
	results := &memResults{}
	h, jobs := newTopicJobs(memFiles{"comm.json": commGraph(t, contents)}, results)
	body := enqueue(t, jobs, "job1", viz.TopicOptions{Method: "tfidf", NumTopics: topic.FixedCount(3)})

	if err := h.Process(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}
	job, _ := jobs.GetJob(context.Background(), "job1")
	if job.Status != store.JobCompleted || job.ResultKey != "results/job1.json" {
		t.Fatalf("unexpected job: %+v", job)
	}

	var report struct {
		MethodUsed topic.Method      `json:"method_used"`
		Topics     []json.RawMessage `json:"topics"`
	}
	if err := json.Unmarshal(results.data["results/job1.json"], &report); err != nil {
		t.Fatalf("stored result is not a report: %v", err)
	}
	if report.MethodUsed != topic.MethodTFIDF || len(report.Topics) != 3 {
		t.Fatalf("unexpected report: method=%s topics=%d", report.MethodUsed, len(report.Topics))
	}
}

func TestProcessTopicJobDomainFailure(t *testing.T) {
	h, jobs := newTopicJobs(memFiles{"comm.json": commGraph(t, contents[:2])}, &memResults{})
	body := enqueue(t, jobs, "job2", viz.TopicOptions{Method: "tfidf"})

	if err := h.Process(context.Background(), body); err != nil {
		t.Fatalf("domain failures should not be retried: %v", err)
	}
	job, _ := jobs.GetJob(context.Background(), "job2")
	if job.Status != store.JobFailed || !strings.Contains(job.Error, "Not enough") {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestProcessTopicJobStorageErrorRetries(t *testing.T) {
	results := &memResults{err: errors.New("bucket down")}
	h, jobs := newTopicJobs(memFiles{"comm.json": commGraph(t, contents)}, results)
	body := enqueue(t, jobs, "job3", viz.TopicOptions{Method: "tfidf"})

	if err := h.Process(context.Background(), body); err == nil {
		t.Fatalf("expected storage error to be returned for retry")
	}
	if results.puts != storeAttempts {
		t.Fatalf("expected %d upload attempts, got %d", storeAttempts, results.puts)
	}
	job, _ := jobs.GetJob(context.Background(), "job3")
	if job.Status != store.JobRunning {
		t.Fatalf("expected job to stay running, got %s", job.Status)
	}

	h.GiveUp(context.Background(), body, errors.New("retries exhausted"))
	job, _ = jobs.GetJob(context.Background(), "job3")
	if job.Status != store.JobFailed || job.Error != "retries exhausted" {
		t.Fatalf("unexpected job after giving up: %+v", job)
	}
}

func TestProcessTopicJobTransientUploadError(t *testing.T) {
	results := &memResults{failures: storeAttempts - 1}
	h, jobs := newTopicJobs(memFiles{"comm.json": commGraph(t, contents)}, results)
	body := enqueue(t, jobs, "job5", viz.TopicOptions{Method: "tfidf"})

	if err := h.Process(context.Background(), body); err != nil {
		t.Fatalf("transient upload errors should be retried in place: %v", err)
	}
	if results.puts != storeAttempts {
		t.Fatalf("expected %d upload attempts, got %d", storeAttempts, results.puts)
	}
	job, _ := jobs.GetJob(context.Background(), "job5")
	if job.Status != store.JobCompleted {
		t.Fatalf("expected completed job, got %s", job.Status)
	}
}

func TestProcessTopicJobInvalidMessage(t *testing.T) {
	h, _ := newTopicJobs(memFiles{}, &memResults{})
	for _, body := range []string{"not json", `{"options":{}}`} {
		if err := h.Process(context.Background(), []byte(body)); !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("body %q: expected ErrInvalidMessage, got %v", body, err)
		}
	}
}

func TestProcessTopicJobUnknownJob(t *testing.T) {
	h, _ := newTopicJobs(memFiles{}, &memResults{})
	if err := h.Process(context.Background(), []byte(`{"job_id":"ghost"}`)); err != nil {
		t.Fatalf("unknown jobs should be dropped, got %v", err)
	}
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp091.Table
		want    int
	}{
		{"missing", nil, 0},
		{"int32", amqp091.Table{"x-retries": int32(3)}, 3},
		{"int64", amqp091.Table{"x-retries": int64(7)}, 7},
		{"string", amqp091.Table{"x-retries": "2"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetryCount(tt.headers); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRetryArgs(t *testing.T) {
	args := retryArgs(TopicQueue)
	if args["x-message-ttl"] != int32(10000) || args["x-dead-letter-routing-key"] != TopicQueue {
		t.Fatalf("unexpected retry args: %v", args)
	}
}

type busyLocker struct{ keys []string }

func (l *busyLocker) WithLease(_ context.Context, key string, _ func(context.Context) error) error {
	l.keys = append(l.keys, key)
	return errors.New("lease lock busy")
}

func TestProcessTopicJobHeldElsewhere(t *testing.T) {
	h, jobs := newTopicJobs(memFiles{"comm.json": commGraph(t, contents)}, &memResults{})
	locks := &busyLocker{}
	h.Locks = locks
	body := enqueue(t, jobs, "job4", viz.TopicOptions{Method: "tfidf"})

	if err := h.Process(context.Background(), body); err == nil {
		t.Fatalf("expected busy lease to be retried")
	}
	if len(locks.keys) != 1 || locks.keys[0] != "job:job4" {
		t.Fatalf("unexpected lease keys %v", locks.keys)
	}
	job, _ := jobs.GetJob(context.Background(), "job4")
	if job.Status != store.JobPending {
		t.Fatalf("expected job to stay pending, got %s", job.Status)
	}
}
