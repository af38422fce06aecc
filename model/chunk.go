package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chunk represents one retrievable passage of the document. Chunks are
// immutable once created, a changed document produces chunks with new RIDs.
type Chunk struct {
	ID          int       `json:"id"`
	RID         uuid.UUID `json:"rid"`
	DocumentID  int64     `json:"document_id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	Content     string    `json:"content"`
	Pages       []int64   `json:"pages"`     // 1-based page numbers the chunk text overlaps
	StartPos    int       `json:"start_pos"` // rune offset into the concatenated document text
	EndPos      int       `json:"end_pos"`
	ChunkIndex  int       `json:"chunk_index"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Result fields, only set on retrieved chunks
	Similarity float64 `json:"similarity,omitempty"`
}

// ChunkRID derives the stable chunk identifier from the document content
// hash and the chunk position. Identical input always yields the same RID,
// which is what makes upserts replace instead of duplicate.
func ChunkRID(contentHash string, chunkIndex int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", contentHash, chunkIndex)))
}
