package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

func newSentimentServer(t *testing.T, handler http.HandlerFunc) *SentimentClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSentimentClient(SentimentClientConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Timeout:   2 * time.Second,
		RateLimit: 100,
	})
}

func TestSentimentClient_AnalyzeSentiment(t *testing.T) {
	client := newSentimentServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I am feeling very hopeless.", body["text"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 80, "summary": "High distress"}`))
	})

	result, err := client.AnalyzeSentiment(context.Background(), "I am feeling very hopeless.")
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Score)
	assert.Equal(t, "High distress", result.Summary)
	assert.False(t, result.Fallback)
}

func TestSentimentClient_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, false},
		{"invalid json", http.StatusOK, `not json`, true},
		{"missing score", http.StatusOK, `{"summary":"x"}`, true},
		{"score above range", http.StatusOK, `{"score": 150, "summary":"x"}`, true},
		{"score below range", http.StatusOK, `{"score": -1, "summary":"x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSentimentServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := client.AnalyzeSentiment(context.Background(), "text")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.malformed, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestSentimentClient_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"score": 42, "summary": "ok"}`))
	}))
	defer server.Close()

	client := NewSentimentClient(SentimentClientConfig{BaseURL: server.URL, RateLimit: 100, RetryCount: 2})

	result, err := client.AnalyzeSentiment(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 42.0, result.Score)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestSentimentClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewSentimentClient(SentimentClientConfig{BaseURL: server.URL, RateLimit: 100, RetryCount: 3})

	_, err := client.AnalyzeSentiment(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSentimentClient_NotConfigured(t *testing.T) {
	client := NewSentimentClientFromConfig(domain.SentimentConfig{})
	_, err := client.AnalyzeSentiment(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSentimentClient_CancelledContext(t *testing.T) {
	client := newSentimentServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score": 1}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AnalyzeSentiment(ctx, "text")
	assert.Error(t, err)
}
