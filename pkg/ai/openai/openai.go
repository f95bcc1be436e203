package openai

import (
	"sync"
	"time"

	"github.com/commscope/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// OpenAIEmbedder embeds texts through an OpenAI compatible embeddings API.
//
// An OpenAIEmbedder should be created using NewOpenAIEmbedder.
type OpenAIEmbedder struct {
	model      string
	dimensions int
	batchSize  int
	maxTokens  int
	timeout    time.Duration
	retries    int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.UsageMetrics

	Client *openai.Client
}

// NewOpenAIEmbedderParams defines the configuration for NewOpenAIEmbedder.
//
// BaseURL and APIKey configure the endpoint; an empty BaseURL uses the
// official API. Dimensions truncates or zero-pads returned vectors.
// MaxTokens truncates every input before it is sent.
type NewOpenAIEmbedderParams struct {
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

// NewOpenAIEmbedder creates an embedder from params.
//
// Example:
//
//	e := openai.NewOpenAIEmbedder(openai.NewOpenAIEmbedderParams{
//		Model:  "text-embedding-3-small",
//		APIKey: os.Getenv("AI_EMBED_KEY"),
//	})
func NewOpenAIEmbedder(params NewOpenAIEmbedderParams) *OpenAIEmbedder {
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	if params.BatchSize <= 0 {
		params.BatchSize = 64
	}
	if params.MaxConcurrentRequests <= 0 {
		params.MaxConcurrentRequests = 4
	}
	if params.TimeoutMin <= 0 {
		params.TimeoutMin = 2
	}
	if params.Retries <= 0 {
		params.Retries = 3
	}

	return &OpenAIEmbedder{
		model:      params.Model,
		dimensions: params.Dimensions,
		batchSize:  params.BatchSize,
		maxTokens:  params.MaxTokens,
		timeout:    time.Duration(params.TimeoutMin) * time.Minute,
		retries:    params.Retries,
		reqLock:    semaphore.NewWeighted(params.MaxConcurrentRequests),
		Client:     &client,
	}
}

func (c *OpenAIEmbedder) addMetrics(m ai.UsageMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.Add(m)
}

// GetMetrics returns the accumulated usage since the last reset.
func (c *OpenAIEmbedder) GetMetrics() ai.UsageMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics clears the accumulated usage.
func (c *OpenAIEmbedder) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.UsageMetrics{}
	c.metricsLock.Unlock()
}
