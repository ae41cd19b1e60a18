// Package app assembles the triage service and its collaborators from configuration.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/logging"
	"github.com/crisis-triage-mcp-server/internal/repository"
	"github.com/crisis-triage-mcp-server/internal/service"
	"github.com/crisis-triage-mcp-server/pkg/external"
)

// Components holds everything a front end needs to serve requests.
type Components struct {
	Logger    *logrus.Logger
	Sentiment *external.ResilientSentimentClient
	Triage    *service.TriageService

	closers []func() error
}

// Build wires logging, the sentiment pipeline, the in-memory store and the
// triage service. The Redis tier is optional: when it cannot be reached the
// pipeline runs on the memory cache alone.
func Build(configManager domain.ConfigManager) (*Components, error) {
	logger := logging.NewLogger(*configManager.GetLoggingConfig())
	return BuildWithLogger(configManager, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(configManager domain.ConfigManager, logger *logrus.Logger) (*Components, error) {
	c := &Components{Logger: logger}

	sentimentCfg := configManager.GetSentimentConfig()
	cacheCfg := configManager.GetCacheConfig()

	var shared external.SharedSentimentCache
	if cacheCfg.RedisURL != "" {
		redisCache, err := external.NewSentimentCache(*cacheCfg)
		if err != nil {
			logger.WithError(err).Warn("Shared sentiment cache unavailable, continuing with memory cache only")
		} else {
			shared = redisCache
			c.closers = append(c.closers, redisCache.Close)
			logger.Info("Shared sentiment cache connected")
		}
	}

	if sentimentCfg.BaseURL == "" {
		logger.Warn("Sentiment service not configured, notes will score with the neutral fallback")
	}

	sentiment, err := external.NewResilientSentimentClient(
		external.NewSentimentClientFromConfig(*sentimentCfg),
		shared,
		external.CircuitBreakerConfig{
			MaxRequests: sentimentCfg.BreakerMaxRequests,
			Interval:    sentimentCfg.BreakerInterval,
			Timeout:     sentimentCfg.BreakerTimeout,
			MemoryItems: cacheCfg.MaxItems,
			MemoryTTL:   cacheCfg.DefaultTTL,
		},
		logger,
	)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create sentiment client: %w", err)
	}
	c.Sentiment = sentiment

	store := repository.NewMemoryPatientStore(logger)
	c.Triage = service.NewTriageService(logger, store, sentiment)

	return c, nil
}

// Close releases external connections.
func (c *Components) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
