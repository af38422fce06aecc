package retrieval

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/database"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

// Engine performs vector similarity search over the embedded chunks of the
// active document.
type Engine struct {
	chunks database.ChunksDBHandlerFunctions
}

// NewEngine creates a new retrieval engine.
func NewEngine(chunks database.ChunksDBHandlerFunctions) *Engine {
	return &Engine{chunks: chunks}
}

// VectorRetrieve returns the top-k most similar chunks for the query
// embedding. An empty index yields an EmptyIndexError so callers can tell
// "nothing indexed" apart from "nothing relevant". Results are ordered by
// descending similarity with the chunk RID as tie-break, and each chunk
// appears at most once.
func (e *Engine) VectorRetrieve(ctx context.Context, embedding []float32, config model.QueryConfig) ([]*model.RetrievalResult, error) {
	count, err := e.chunks.CountChunks(ctx)
	if err != nil {
		return nil, helper.NewError("VectorRetrieve", err)
	}
	if count == 0 {
		return nil, &model.EmptyIndexError{}
	}

	chunks, err := e.chunks.SelectChunksBySimilarity(ctx, embedding, config.TopK)
	if err != nil {
		return nil, helper.NewError("VectorRetrieve", err)
	}

	seen := make(map[uuid.UUID]bool, len(chunks))
	results := make([]*model.RetrievalResult, 0, len(chunks))
	for _, chunk := range chunks {
		if seen[chunk.RID] {
			continue
		}
		seen[chunk.RID] = true
		results = append(results, &model.RetrievalResult{
			Chunk:           chunk,
			Score:           chunk.Similarity,
			SimilarityScore: chunk.Similarity,
			RetrievalMethod: model.RetrievalMethodVector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.RID.String() < results[j].Chunk.RID.String()
	})

	if len(results) > config.TopK {
		results = results[:config.TopK]
	}

	return results, nil
}
