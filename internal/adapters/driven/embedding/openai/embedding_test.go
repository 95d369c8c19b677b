package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// embeddingServer answers with a one-dimensional vector per input whose
// value is the input length, in reverse index order.
func embeddingServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		requests.Add(1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i]))},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, s.Dimensions())
	assert.Equal(t, "text-embedding-3-large", s.ModelName())
	assert.Equal(t, DefaultBatchSize, s.batchSize)
}

func TestEmbedBatch_SplitsAndPreservesOrder(t *testing.T) {
	var requests atomic.Int32
	srv := embeddingServer(t, &requests)

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, BatchSize: 2})
	require.NoError(t, err)

	vectors, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), requests.Load())
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i + 1)}, v)
	}
}

func TestEmbed_Single(t *testing.T) {
	var requests atomic.Int32
	srv := embeddingServer(t, &requests)

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	v, err := s.Embed(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, v)
}

func TestEmbedBatch_Empty(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://unused"})
	require.NoError(t, err)

	vectors, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBatch_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"unauthorised", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
			}))
			defer srv.Close()

			s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = s.EmbedBatch(context.Background(), []string{"x"})
			require.Error(t, err)
			assert.Equal(t, tt.transient, errors.Is(err, domain.ErrTransient))
		})
	}
}

func TestEmbedBatch_MissingEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "no embedding returned for input 1")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}
