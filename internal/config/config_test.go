package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, ":8051", cfg.HTTPAddr)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.True(t, cfg.UseHybridSearch)
	assert.False(t, cfg.UseReranking)
	assert.Equal(t, 5000, cfg.DefaultChunkSize)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestFromEnv_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("TRANSPORT", "sse")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("USE_RERANKING", "true")
	t.Setenv("MAX_RETRIES", "7")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, TransportSSE, cfg.Transport)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.True(t, cfg.UseReranking)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestFromEnv_InvalidTransportIsError(t *testing.T) {
	t.Setenv("TRANSPORT", "carrier-pigeon")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_InvalidBoolFallsBackToDefault(t *testing.T) {
	t.Setenv("USE_HYBRID_SEARCH", "not-a-bool")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.UseHybridSearch)
}

func TestFromEnv_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRetries)
}
