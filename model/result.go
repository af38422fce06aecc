package model

import "slices"

type RetrievalMethod string

const (
	RetrievalMethodVector    RetrievalMethod = "vector"
	RetrievalMethodThreshold RetrievalMethod = "threshold"
)

// RetrievalResult represents a chunk retrieved for a query. Results are
// ephemeral and never persisted.
type RetrievalResult struct {
	Chunk           *Chunk          `json:"chunk"`
	Score           float64         `json:"score"`
	SimilarityScore float64         `json:"similarity_score"` // Cosine similarity score
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
}

// Provenance returns the deduplicated, ascending page numbers covered by
// the given results. Citations must always be a subset of this set.
func Provenance(results []*RetrievalResult) []int64 {
	seen := map[int64]bool{}
	var pages []int64
	for _, result := range results {
		for _, page := range result.Chunk.Pages {
			if !seen[page] {
				seen[page] = true
				pages = append(pages, page)
			}
		}
	}
	slices.Sort(pages)
	return pages
}
