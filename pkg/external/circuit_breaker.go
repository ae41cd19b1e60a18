package external

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

// SharedSentimentCache is the optional second cache tier.
type SharedSentimentCache interface {
	Get(ctx context.Context, text string) (*domain.SentimentResult, bool, error)
	Set(ctx context.Context, text string, result *domain.SentimentResult, ttl time.Duration) error
}

// CircuitBreakerConfig represents circuit breaker and cache configuration
type CircuitBreakerConfig struct {
	MaxRequests uint32        `json:"max_requests"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`

	MemoryItems int           `json:"memory_items"`
	MemoryTTL   time.Duration `json:"memory_ttl"`
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	MemoryHits    int64 `json:"memory_hits"`
	SharedHits    int64 `json:"shared_hits"`
	ExternalCalls int64 `json:"external_calls"`
	Fallbacks     int64 `json:"fallbacks"`
}

type memoryEntry struct {
	result    *domain.SentimentResult
	expiresAt time.Time
}

// ResilientSentimentClient wraps a sentiment analyzer with a two-tier cache
// and a circuit breaker. It never returns an error: every failure path
// yields the neutral fallback, which is not cached.
type ResilientSentimentClient struct {
	upstream    domain.SentimentAnalyzer
	shared      SharedSentimentCache
	memoryCache *lru.Cache
	memoryTTL   time.Duration
	breaker     *gobreaker.CircuitBreaker
	logger      *logrus.Logger

	statsMu sync.Mutex
	stats   CacheStats
}

// NewResilientSentimentClient creates a resilient client. shared may be nil.
func NewResilientSentimentClient(
	upstream domain.SentimentAnalyzer,
	shared SharedSentimentCache,
	config CircuitBreakerConfig,
	logger *logrus.Logger,
) (*ResilientSentimentClient, error) {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MemoryItems == 0 {
		config.MemoryItems = 1000
	}
	if config.MemoryTTL == 0 {
		config.MemoryTTL = 15 * time.Minute
	}

	memoryCache, err := lru.New(config.MemoryItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Sentiment",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// A caller giving up says nothing about the upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerCancellation(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	})

	return &ResilientSentimentClient{
		upstream:    upstream,
		shared:      shared,
		memoryCache: memoryCache,
		memoryTTL:   config.MemoryTTL,
		breaker:     breaker,
		logger:      logger,
	}, nil
}

// AnalyzeSentiment returns a cached or fresh result, or the fallback.
func (r *ResilientSentimentClient) AnalyzeSentiment(ctx context.Context, text string) (*domain.SentimentResult, error) {
	key := SentimentCacheKey(text)

	if result := r.getFromMemory(key); result != nil {
		r.bump(func(s *CacheStats) { s.MemoryHits++ })
		return result, nil
	}

	if r.shared != nil {
		cached, found, err := r.shared.Get(ctx, text)
		if err != nil {
			r.logger.WithError(err).Debug("Shared sentiment cache lookup failed")
		} else if found {
			r.bump(func(s *CacheStats) { s.SharedHits++ })
			r.setInMemory(key, cached)
			return copyResult(cached), nil
		}
	}

	if err := ctx.Err(); err != nil {
		r.bump(func(s *CacheStats) { s.Fallbacks++ })
		r.logger.WithError(err).Debug("Request cancelled before sentiment analysis, using neutral fallback")
		return domain.FallbackSentiment(), nil
	}

	r.bump(func(s *CacheStats) { s.ExternalCalls++ })
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.upstream.AnalyzeSentiment(ctx, text)
	})
	if err != nil {
		r.bump(func(s *CacheStats) { s.Fallbacks++ })
		entry := r.logger.WithError(err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			entry = entry.WithField("breaker_state", r.breaker.State().String())
		}
		entry.Warn("Sentiment analysis unavailable, using neutral fallback")
		return domain.FallbackSentiment(), nil
	}

	result, ok := out.(*domain.SentimentResult)
	if !ok || result == nil {
		r.bump(func(s *CacheStats) { s.Fallbacks++ })
		r.logger.Warn("Sentiment analyzer returned no result, using neutral fallback")
		return domain.FallbackSentiment(), nil
	}

	r.setInMemory(key, result)
	if r.shared != nil {
		if err := r.shared.Set(ctx, text, result, 0); err != nil {
			r.logger.WithError(err).Debug("Failed to cache sentiment result")
		}
	}
	return copyResult(result), nil
}

func isCallerCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// BreakerState reports the circuit breaker state for health checks.
func (r *ResilientSentimentClient) BreakerState() string {
	return r.breaker.State().String()
}

// Stats returns a snapshot of cache statistics.
func (r *ResilientSentimentClient) Stats() CacheStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *ResilientSentimentClient) bump(f func(*CacheStats)) {
	r.statsMu.Lock()
	f(&r.stats)
	r.statsMu.Unlock()
}

func (r *ResilientSentimentClient) getFromMemory(key string) *domain.SentimentResult {
	v, ok := r.memoryCache.Get(key)
	if !ok {
		return nil
	}
	entry := v.(memoryEntry)
	if time.Now().After(entry.expiresAt) {
		r.memoryCache.Remove(key)
		return nil
	}
	return copyResult(entry.result)
}

func (r *ResilientSentimentClient) setInMemory(key string, result *domain.SentimentResult) {
	r.memoryCache.Add(key, memoryEntry{
		result:    copyResult(result),
		expiresAt: time.Now().Add(r.memoryTTL),
	})
}

func copyResult(result *domain.SentimentResult) *domain.SentimentResult {
	cp := *result
	return &cp
}
