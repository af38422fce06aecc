package retrieval

import (
	"context"

	"github.com/siherrmann/docqa/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, embedding []float32, config model.QueryConfig) ([]*model.RetrievalResult, error)
}

// VectorOnlyStrategy performs pure vector similarity search
type VectorOnlyStrategy struct {
	engine *Engine
}

// NewVectorOnlyStrategy creates a new vector-only strategy
func NewVectorOnlyStrategy(engine *Engine) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{engine: engine}
}

// Retrieve performs vector-only retrieval
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, embedding []float32, config model.QueryConfig) ([]*model.RetrievalResult, error) {
	return s.engine.VectorRetrieve(ctx, embedding, config)
}

// ThresholdStrategy performs vector search and drops results whose
// similarity falls below the configured threshold. With a threshold of
// zero it behaves like VectorOnlyStrategy.
type ThresholdStrategy struct {
	engine *Engine
}

// NewThresholdStrategy creates a new threshold strategy
func NewThresholdStrategy(engine *Engine) *ThresholdStrategy {
	return &ThresholdStrategy{engine: engine}
}

// Retrieve performs vector retrieval with similarity filtering
func (s *ThresholdStrategy) Retrieve(ctx context.Context, embedding []float32, config model.QueryConfig) ([]*model.RetrievalResult, error) {
	results, err := s.engine.VectorRetrieve(ctx, embedding, config)
	if err != nil {
		return nil, err
	}

	if config.SimilarityThreshold <= 0 {
		return results, nil
	}

	filtered := make([]*model.RetrievalResult, 0, len(results))
	for _, result := range results {
		if result.SimilarityScore >= config.SimilarityThreshold {
			result.RetrievalMethod = model.RetrievalMethodThreshold
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}
