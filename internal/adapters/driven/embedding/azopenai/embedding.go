// Package azopenai provides an embedding service adapter for Azure
// OpenAI deployments.
package azopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-02-01"
	DefaultDimensions = 1536
	DefaultTimeout    = 60 * time.Second

	// DefaultBatchSize is the number of texts sent per API call.
	DefaultBatchSize = 16

	// Retry policy for transient failures: three attempts with
	// exponential backoff between 2s and 30s.
	maxRetries      = 3
	initialInterval = 2 * time.Second
	maxInterval     = 30 * time.Second
)

// Config holds configuration for the Azure OpenAI embedding service.
type Config struct {
	// Endpoint is the Azure OpenAI resource endpoint, e.g.
	// https://myresource.openai.azure.com (required).
	Endpoint string

	// APIKey is the resource API key (required).
	APIKey string

	// Deployment is the embedding model deployment name (required).
	Deployment string

	// APIVersion is the API version query parameter (default: 2024-02-01).
	APIVersion string

	// Dimensions is the embedding vector size (default: 1536).
	Dimensions int

	// BatchSize is the number of texts per API call (default: 16).
	BatchSize int

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// EmbeddingService generates embeddings using an Azure OpenAI deployment.
type EmbeddingService struct {
	client     *http.Client
	url        string
	apiKey     string
	dimensions int
	batchSize  int

	// retry intervals, shrunk in tests
	retryInitial time.Duration
	retryMax     time.Duration
}

// embeddingRequest is the API request format.
type embeddingRequest struct {
	Input []string `json:"input"`
}

// embeddingResponse is the API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Azure OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azopenai: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azopenai: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azopenai: deployment name is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		strings.TrimRight(cfg.Endpoint, "/"), cfg.Deployment, cfg.APIVersion)

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:          url,
		apiKey:       cfg.APIKey,
		dimensions:   cfg.Dimensions,
		batchSize:    cfg.BatchSize,
		retryInitial: initialInterval,
		retryMax:     maxInterval,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("azopenai: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, batching requests
// and retrying transient failures. The result preserves input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

// embedWithRetry sends one batch, retrying transient failures.
func (s *EmbeddingService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInitial
	policy.MaxInterval = s.retryMax

	var result [][]float32
	operation := func() error {
		batch, err := s.embed(ctx, texts)
		if err != nil {
			return err
		}
		result = batch
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("azopenai: embedding failed after %d attempts: %w", maxRetries, err)
	}
	return result, nil
}

// embed sends one batch request.
func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{Input: texts})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("azure openai error (status %d): %s", resp.StatusCode, string(body))
		// Throttling and server errors are retryable, the rest are not
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("azure openai error: %s", embedResp.Error.Message))
	}

	// Order by index; the API may return out of order
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, backoff.Permanent(fmt.Errorf("azure openai returned index %d for batch of %d", data.Index, len(texts)))
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("azure openai returned no embedding for input %d", i)
		}
	}

	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
