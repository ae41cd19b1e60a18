package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

const sentimentKeyPrefix = "sentiment:"

// SentimentCache is the shared Redis tier for sentiment results.
type SentimentCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// CachedSentiment represents a cached sentiment result with metadata
type CachedSentiment struct {
	Data      *domain.SentimentResult `json:"data"`
	CachedAt  time.Time               `json:"cached_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// NewSentimentCache connects to Redis and verifies the connection.
func NewSentimentCache(config domain.CacheConfig) (*SentimentCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &SentimentCache{redis: client, defaultTTL: ttl}, nil
}

// Get returns a cached result. A miss, corrupt entry or expired entry is
// reported as not found.
func (c *SentimentCache) Get(ctx context.Context, text string) (*domain.SentimentResult, bool, error) {
	key := SentimentCacheKey(text)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get sentiment cache: %w", err)
	}

	var cached CachedSentiment
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Data == nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set stores a result. A zero ttl uses the default.
func (c *SentimentCache) Set(ctx context.Context, text string, result *domain.SentimentResult, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	data, err := json.Marshal(CachedSentiment{
		Data:      result,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sentiment cache data: %w", err)
	}

	return c.redis.Set(ctx, SentimentCacheKey(text), data, ttl).Err()
}

// Delete removes the cached result for a text.
func (c *SentimentCache) Delete(ctx context.Context, text string) error {
	return c.redis.Del(ctx, SentimentCacheKey(text)).Err()
}

// Close closes the Redis connection.
func (c *SentimentCache) Close() error {
	return c.redis.Close()
}

// SentimentCacheKey derives the cache key from the text digest so notes are
// never stored as keys.
func SentimentCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return sentimentKeyPrefix + hex.EncodeToString(sum[:])
}
