package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

var (
	// ErrNotConfigured is returned when no collaborator base URL is set.
	ErrNotConfigured = errors.New("sentiment collaborator not configured")
	// ErrMalformedResponse covers undecodable bodies and out-of-range scores.
	ErrMalformedResponse = errors.New("malformed sentiment response")
)

const analyzePath = "/analyze"

// SentimentClient calls the external text-classification collaborator.
type SentimentClient struct {
	baseURL    string
	apiKey     string
	retryCount int
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// SentimentClientConfig represents configuration for the sentiment client
type SentimentClientConfig struct {
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"api_key"`
	Timeout    time.Duration `json:"timeout"`
	RateLimit  int           `json:"rate_limit"` // requests per second
	RetryCount int           `json:"retry_count"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Score   *float64 `json:"score"`
	Summary string   `json:"summary"`
}

// NewSentimentClient creates a new sentiment collaborator client
func NewSentimentClient(config SentimentClientConfig) *SentimentClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}

	return &SentimentClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		retryCount: config.RetryCount,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// NewSentimentClientFromConfig adapts the application configuration.
func NewSentimentClientFromConfig(cfg domain.SentimentConfig) *SentimentClient {
	return NewSentimentClient(SentimentClientConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		RetryCount: cfg.RetryCount,
	})
}

// AnalyzeSentiment scores the text. Transport failures, non-200 responses
// and malformed bodies are returned as errors; callers decide on fallback.
func (c *SentimentClient) AnalyzeSentiment(ctx context.Context, text string) (*domain.SentimentResult, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if err := c.rateLimit.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}

		result, retryable, err := c.analyzeOnce(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *SentimentClient) analyzeOnce(ctx context.Context, text string) (*domain.SentimentResult, bool, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("sentiment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode >= 500, fmt.Errorf("sentiment service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if decoded.Score == nil {
		return nil, false, fmt.Errorf("%w: missing score", ErrMalformedResponse)
	}
	if *decoded.Score < 0 || *decoded.Score > 100 {
		return nil, false, fmt.Errorf("%w: score %v outside [0,100]", ErrMalformedResponse, *decoded.Score)
	}

	return &domain.SentimentResult{
		Score:   *decoded.Score,
		Summary: decoded.Summary,
	}, false, nil
}
