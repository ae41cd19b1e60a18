package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisis-triage-mcp-server/internal/config"
	"github.com/crisis-triage-mcp-server/internal/logging"
	"github.com/crisis-triage-mcp-server/internal/service"
)

func newManager(t *testing.T) *config.Manager {
	t.Helper()
	t.Chdir(t.TempDir())
	m, err := config.NewManager()
	require.NoError(t, err)
	return m
}

func TestBuild_UnconfiguredSentimentFallsBack(t *testing.T) {
	m := newManager(t)

	c, err := BuildWithLogger(m, logging.NewDiscardLogger())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Triage)
	assert.Equal(t, "closed", c.Sentiment.BreakerState())

	result := c.Triage.Simulate(context.Background(), &service.AssessmentParams{
		Responses: map[string]int{"q1": 1},
		Note:      "rough week",
	})
	assert.Equal(t, 50.0, result.Sentiment.Score)
	assert.Equal(t, "Error analyzing sentiment", result.Sentiment.Summary)
}

func TestBuild_UnreachableRedisIsNotFatal(t *testing.T) {
	t.Setenv("TRIAGE_CACHE_REDIS_URL", "redis://127.0.0.1:1/0")
	m := newManager(t)

	c, err := BuildWithLogger(m, logging.NewDiscardLogger())
	require.NoError(t, err)
	assert.Empty(t, c.closers)
	assert.NoError(t, c.Close())
}

func TestBuild_InvalidRedisURLIsNotFatal(t *testing.T) {
	t.Setenv("TRIAGE_CACHE_REDIS_URL", "not-a-url")
	m := newManager(t)

	c, err := BuildWithLogger(m, logging.NewDiscardLogger())
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
