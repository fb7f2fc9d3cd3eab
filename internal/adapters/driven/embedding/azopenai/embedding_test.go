package azopenai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponse struct {
	Data []map[string]any `json:"data"`
}

func embeddingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, Config{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		Deployment: "text-embedding-3-small",
	}
}

func TestEmbeddingService_EmbedBatch_PreservesOrder(t *testing.T) {
	server, cfg := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Contains(t, r.URL.Path, "/openai/deployments/text-embedding-3-small/embeddings")
		assert.Equal(t, DefaultAPIVersion, r.URL.Query().Get("api-version"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Return embeddings reversed to verify reordering by index
		resp := stubResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, map[string]any{
				"index":     i,
				"embedding": []float64{float64(i), 0, 0},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})
	_ = server

	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, vec := range vectors {
		assert.Equal(t, float32(i), vec[0])
	}
}

func TestEmbeddingService_EmbedBatch_SplitsLargeBatches(t *testing.T) {
	var calls atomic.Int32
	server, cfg := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), 2)

		resp := stubResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, map[string]any{
				"index":     i,
				"embedding": []float64{1},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})
	_ = server

	cfg.BatchSize = 2
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_EmbedBatch_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	server, cfg := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(stubResponse{Data: []map[string]any{
			{"index": 0, "embedding": []float64{1}},
		}})
	})
	_ = server

	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	svc.retryInitial = time.Millisecond
	svc.retryMax = time.Millisecond

	vectors, err := svc.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbeddingService_EmbedBatch_AuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	server, cfg := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_ = server

	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "a 401 is permanent, not retryable")
}

func TestEmbeddingService_EmbedBatch_EmptyInput(t *testing.T) {
	_, cfg := embeddingServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestNewEmbeddingService_Validation(t *testing.T) {
	_, err := NewEmbeddingService(Config{APIKey: "k", Deployment: "d"})
	assert.Error(t, err, "endpoint required")

	_, err = NewEmbeddingService(Config{Endpoint: "https://x", Deployment: "d"})
	assert.Error(t, err, "api key required")

	_, err = NewEmbeddingService(Config{Endpoint: "https://x", APIKey: "k"})
	assert.Error(t, err, "deployment required")

	svc, err := NewEmbeddingService(Config{Endpoint: "https://x", APIKey: "k", Deployment: "d"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}
