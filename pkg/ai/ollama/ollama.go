package ollama

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/commscope/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// OllamaEmbedder implements ai.Embedder using a locally hosted or remote
// Ollama server.
type OllamaEmbedder struct {
	model      string
	dimensions int
	batchSize  int
	maxTokens  int
	timeout    time.Duration
	retries    int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.UsageMetrics

	Client *api.Client
}

// NewOllamaEmbedderParams contains configuration options for creating a new
// OllamaEmbedder. An empty BaseURL uses the Ollama default.
type NewOllamaEmbedderParams struct {
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	BatchSize  int
	MaxTokens  int

	MaxConcurrentRequests int64
	TimeoutMin            int
	Retries               int
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOllamaEmbedder creates a new Ollama-based embedder.
func NewOllamaEmbedder(params NewOllamaEmbedderParams) (*OllamaEmbedder, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	headers := map[string]string{}
	if params.APIKey != "" {
		headers["Authorization"] = "Bearer " + params.APIKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{headers: headers, rt: http.DefaultTransport},
	}

	if params.BatchSize <= 0 {
		params.BatchSize = 32
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 2
	}
	if params.TimeoutMin <= 0 {
		params.TimeoutMin = 2
	}
	if params.Retries <= 0 {
		params.Retries = 3
	}

	return &OllamaEmbedder{
		model:      params.Model,
		dimensions: params.Dimensions,
		batchSize:  params.BatchSize,
		maxTokens:  params.MaxTokens,
		timeout:    time.Duration(params.TimeoutMin) * time.Minute,
		retries:    params.Retries,
		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:     api.NewClient(u, httpClient),
	}, nil
}

// GetMetrics returns the accumulated usage since the last reset.
func (c *OllamaEmbedder) GetMetrics() ai.UsageMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated usage.
func (c *OllamaEmbedder) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.UsageMetrics{}
	c.metricsLock.Unlock()
}
