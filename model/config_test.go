package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Default config is valid", func(t *testing.T) {
		config := DefaultConfig()
		err := config.Validate()
		assert.NoError(t, err, "Expected default config to validate")
		assert.Equal(t, 1000, config.ChunkSize)
		assert.Equal(t, 200, config.ChunkOverlap)
		assert.Equal(t, 5, config.TopK)
		assert.Equal(t, "text-embedding-004", config.EmbeddingModel)
		assert.Equal(t, "gemini-2.0-flash-exp", config.GenerationModel)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("Overlap equal to chunk size", func(t *testing.T) {
		config := DefaultConfig()
		config.ChunkSize = 200
		config.ChunkOverlap = 200

		err := config.Validate()
		require.Error(t, err, "Expected validation error for overlap == size")

		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr, "Expected a ConfigError")
		assert.Equal(t, "ChunkOverlap", configErr.Field)
	})

	t.Run("Overlap greater than chunk size", func(t *testing.T) {
		config := DefaultConfig()
		config.ChunkSize = 100
		config.ChunkOverlap = 150

		err := config.Validate()
		assert.Error(t, err, "Expected validation error for overlap > size")
	})

	t.Run("Zero chunk size", func(t *testing.T) {
		config := DefaultConfig()
		config.ChunkSize = 0

		err := config.Validate()
		var configErr *ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "ChunkSize", configErr.Field)
	})

	t.Run("Negative top k", func(t *testing.T) {
		config := DefaultConfig()
		config.TopK = -1

		err := config.Validate()
		assert.Error(t, err, "Expected validation error for negative TopK")
	})

	t.Run("Missing model identifiers", func(t *testing.T) {
		config := DefaultConfig()
		config.EmbeddingModel = ""
		assert.Error(t, config.Validate())

		config = DefaultConfig()
		config.GenerationModel = ""
		assert.Error(t, config.Validate())
	})

	t.Run("Similarity threshold out of range", func(t *testing.T) {
		config := DefaultConfig()
		config.SimilarityThreshold = 1.5
		assert.Error(t, config.Validate())
	})
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("Env overrides defaults", func(t *testing.T) {
		t.Setenv("CHUNK_SIZE", "500")
		t.Setenv("CHUNK_OVERLAP", "50")
		t.Setenv("TOP_K", "3")
		t.Setenv("LLM_MODEL", "gemini-1.5-pro")
		t.Setenv("SERVICE_TIMEOUT", "30s")

		config, err := NewConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 500, config.ChunkSize)
		assert.Equal(t, 50, config.ChunkOverlap)
		assert.Equal(t, 3, config.TopK)
		assert.Equal(t, "gemini-1.5-pro", config.GenerationModel)
		assert.Equal(t, 30*time.Second, config.ServiceTimeout)
	})

	t.Run("Invalid integer env", func(t *testing.T) {
		t.Setenv("CHUNK_SIZE", "not-a-number")

		_, err := NewConfigFromEnv()
		require.Error(t, err)

		var configErr *ConfigError
		assert.ErrorAs(t, err, &configErr)
	})

	t.Run("Invalid combination from env", func(t *testing.T) {
		t.Setenv("CHUNK_SIZE", "100")
		t.Setenv("CHUNK_OVERLAP", "100")

		_, err := NewConfigFromEnv()
		assert.Error(t, err, "Expected overlap >= size from env to fail validation")
	})
}
