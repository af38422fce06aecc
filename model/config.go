package model

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the full configuration surface of the question answering
// core. All fields are validated once via Validate, invalid combinations
// surface as a ConfigError.
type Config struct {
	// Model identifiers
	EmbeddingModel  string
	GenerationModel string
	EmbeddingDim    int

	// Chunking parameters (characters, counted in runes)
	ChunkSize    int
	ChunkOverlap int

	// Retrieval parameters
	TopK                int
	SimilarityThreshold float64

	// Conversation history bounds, whichever is smaller wins
	HistoryTurns       int
	HistoryTokenBudget int

	// Generation parameters
	Temperature float64
	MaxTokens   int

	// External service call policy
	ServiceTimeout   time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration

	// Indexing parallelism
	EmbedConcurrency int
}

// DefaultConfig returns the configuration used for the sustainability
// report chatbot deployment.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingModel:      "text-embedding-004",
		GenerationModel:     "gemini-2.0-flash-exp",
		EmbeddingDim:        768,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                5,
		SimilarityThreshold: 0.0,
		HistoryTurns:        4,
		HistoryTokenBudget:  1500,
		Temperature:         0.7,
		MaxTokens:           2000,
		ServiceTimeout:      60 * time.Second,
		MaxRetries:          3,
		RetryBackoffBase:    500 * time.Millisecond,
		EmbedConcurrency:    4,
	}
}

// NewConfigFromEnv builds a Config from environment variables, falling
// back to DefaultConfig values for unset variables.
func NewConfigFromEnv() (*Config, error) {
	config := DefaultConfig()

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		config.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		config.GenerationModel = v
	}

	var err error
	if config.EmbeddingDim, err = envInt("EMBEDDING_DIM", config.EmbeddingDim); err != nil {
		return nil, err
	}
	if config.ChunkSize, err = envInt("CHUNK_SIZE", config.ChunkSize); err != nil {
		return nil, err
	}
	if config.ChunkOverlap, err = envInt("CHUNK_OVERLAP", config.ChunkOverlap); err != nil {
		return nil, err
	}
	if config.TopK, err = envInt("TOP_K", config.TopK); err != nil {
		return nil, err
	}
	if config.HistoryTurns, err = envInt("HISTORY_TURNS", config.HistoryTurns); err != nil {
		return nil, err
	}
	if config.HistoryTokenBudget, err = envInt("HISTORY_TOKEN_BUDGET", config.HistoryTokenBudget); err != nil {
		return nil, err
	}
	if config.MaxTokens, err = envInt("MAX_TOKENS", config.MaxTokens); err != nil {
		return nil, err
	}
	if config.MaxRetries, err = envInt("MAX_RETRIES", config.MaxRetries); err != nil {
		return nil, err
	}
	if config.EmbedConcurrency, err = envInt("EMBED_CONCURRENCY", config.EmbedConcurrency); err != nil {
		return nil, err
	}
	if config.Temperature, err = envFloat("TEMPERATURE", config.Temperature); err != nil {
		return nil, err
	}
	if config.SimilarityThreshold, err = envFloat("SIMILARITY_THRESHOLD", config.SimilarityThreshold); err != nil {
		return nil, err
	}
	if v := os.Getenv("SERVICE_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, &ConfigError{Field: "SERVICE_TIMEOUT", Reason: fmt.Sprintf("invalid duration %q", v)}
		}
		config.ServiceTimeout = timeout
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks all fields and their combinations.
func (c *Config) Validate() error {
	if c.EmbeddingModel == "" {
		return &ConfigError{Field: "EmbeddingModel", Reason: "must not be empty"}
	}
	if c.GenerationModel == "" {
		return &ConfigError{Field: "GenerationModel", Reason: "must not be empty"}
	}
	if c.EmbeddingDim <= 0 {
		return &ConfigError{Field: "EmbeddingDim", Reason: "must be positive"}
	}
	if c.ChunkSize <= 0 {
		return &ConfigError{Field: "ChunkSize", Reason: "must be positive"}
	}
	if c.ChunkOverlap < 0 {
		return &ConfigError{Field: "ChunkOverlap", Reason: "must not be negative"}
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return &ConfigError{Field: "ChunkOverlap", Reason: fmt.Sprintf("overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)}
	}
	if c.TopK <= 0 {
		return &ConfigError{Field: "TopK", Reason: "must be positive"}
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return &ConfigError{Field: "SimilarityThreshold", Reason: "must be between 0 and 1"}
	}
	if c.HistoryTurns < 0 {
		return &ConfigError{Field: "HistoryTurns", Reason: "must not be negative"}
	}
	if c.HistoryTokenBudget <= 0 {
		return &ConfigError{Field: "HistoryTokenBudget", Reason: "must be positive"}
	}
	if c.MaxTokens <= 0 {
		return &ConfigError{Field: "MaxTokens", Reason: "must be positive"}
	}
	if c.ServiceTimeout <= 0 {
		return &ConfigError{Field: "ServiceTimeout", Reason: "must be positive"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "MaxRetries", Reason: "must not be negative"}
	}
	if c.RetryBackoffBase <= 0 {
		return &ConfigError{Field: "RetryBackoffBase", Reason: "must be positive"}
	}
	if c.EmbedConcurrency <= 0 {
		return &ConfigError{Field: "EmbedConcurrency", Reason: "must be positive"}
	}
	return nil
}

// QueryConfig represents configuration for a single retrieval query
type QueryConfig struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// QueryConfigFrom derives the per-query retrieval configuration
func QueryConfigFrom(c *Config) QueryConfig {
	return QueryConfig{
		TopK:                c.TopK,
		SimilarityThreshold: c.SimilarityThreshold,
	}
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Field: key, Reason: fmt.Sprintf("invalid integer %q", v)}
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Field: key, Reason: fmt.Sprintf("invalid float %q", v)}
	}
	return parsed, nil
}
