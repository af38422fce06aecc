package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmbeddingDim = 8

func testVector(dim int, direction int) []float32 {
	embedding := make([]float32, dim)
	embedding[direction%dim] = 1
	return embedding
}

func insertTestDocument(t *testing.T, documents *DocumentsDBHandler, hash string) *model.Document {
	doc := &model.Document{
		Title:       "Test Report",
		Source:      "report.pdf",
		ContentHash: hash,
		PageCount:   5,
	}
	err := documents.InsertDocument(doc)
	require.NoError(t, err, "Expected Insert document to not return an error")
	t.Cleanup(func() {
		documents.DeleteDocument(doc.RID)
	})
	return doc
}

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		// Create documents handler first to ensure documents table exists (needed for foreign key)
		_, err := NewDocumentsDBHandler(database, true)
		require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")

		chunksDbHandler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, testEmbeddingDim, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestChunksUpsert(t *testing.T) {
	database := initDB(t)

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	chunksDbHandler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler, "hash-upsert")

	t.Run("Upsert chunk without embedding", func(t *testing.T) {
		chunk := &model.Chunk{
			RID:        model.ChunkRID(doc.ContentHash, 0),
			DocumentID: doc.ID,
			Content:    "This is a test chunk",
			Pages:      []int64{1},
			StartPos:   0,
			EndPos:     20,
			ChunkIndex: 0,
			Metadata:   map[string]interface{}{"kind": "window"},
		}

		err := chunksDbHandler.UpsertChunk(chunk)
		assert.NoError(t, err, "Expected Upsert to not return an error")
		assert.NotEmpty(t, chunk.ID, "Expected upserted chunk to have an ID")
		assert.Equal(t, doc.RID, chunk.DocumentRID, "Expected document RID to be resolved")
		assert.WithinDuration(t, chunk.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Upsert chunk with embedding", func(t *testing.T) {
		chunk := &model.Chunk{
			RID:        model.ChunkRID(doc.ContentHash, 1),
			DocumentID: doc.ID,
			Content:    "This is another test chunk",
			Pages:      []int64{1, 2},
			StartPos:   15,
			EndPos:     41,
			ChunkIndex: 1,
			Embedding:  testVector(testEmbeddingDim, 1),
		}

		err := chunksDbHandler.UpsertChunk(chunk)
		assert.NoError(t, err)
		assert.Equal(t, testEmbeddingDim, len(chunk.Embedding), "Expected embedding to be preserved")
	})

	t.Run("Upsert with same RID replaces instead of duplicating", func(t *testing.T) {
		rid := model.ChunkRID(doc.ContentHash, 2)
		first := &model.Chunk{
			RID:        rid,
			DocumentID: doc.ID,
			Content:    "original content",
			Pages:      []int64{2},
			ChunkIndex: 2,
			Embedding:  testVector(testEmbeddingDim, 2),
		}
		require.NoError(t, chunksDbHandler.UpsertChunk(first))
		firstID := first.ID

		second := &model.Chunk{
			RID:        rid,
			DocumentID: doc.ID,
			Content:    "replaced content",
			Pages:      []int64{2, 3},
			ChunkIndex: 2,
			Embedding:  testVector(testEmbeddingDim, 3),
		}
		require.NoError(t, chunksDbHandler.UpsertChunk(second))

		assert.Equal(t, firstID, second.ID, "Expected upsert to replace the same row")

		reloaded, err := chunksDbHandler.SelectChunk(rid)
		require.NoError(t, err)
		assert.Equal(t, "replaced content", reloaded.Content)
		assert.Equal(t, []int64{2, 3}, reloaded.Pages)
	})
}

func TestChunksCount(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	chunksDbHandler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler, "hash-count")

	t.Run("Count is zero without an active document", func(t *testing.T) {
		count, err := chunksDbHandler.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Only embedded chunks of the active document are counted", func(t *testing.T) {
		embedded := &model.Chunk{
			RID:        model.ChunkRID(doc.ContentHash, 0),
			DocumentID: doc.ID,
			Content:    "embedded chunk",
			Pages:      []int64{1},
			ChunkIndex: 0,
			Embedding:  testVector(testEmbeddingDim, 0),
		}
		pending := &model.Chunk{
			RID:        model.ChunkRID(doc.ContentHash, 1),
			DocumentID: doc.ID,
			Content:    "pending chunk",
			Pages:      []int64{1},
			ChunkIndex: 1,
		}
		require.NoError(t, chunksDbHandler.UpsertChunk(embedded))
		require.NoError(t, chunksDbHandler.UpsertChunk(pending))

		_, err := documentsDbHandler.ActivateDocument(doc.RID)
		require.NoError(t, err)

		count, err := chunksDbHandler.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "Expected only the embedded chunk to be counted")

		byDoc, err := chunksDbHandler.CountChunksByDocument(doc.RID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), byDoc)
	})

	t.Run("Embedded chunk RIDs support resuming a build", func(t *testing.T) {
		rids, err := chunksDbHandler.SelectEmbeddedChunkRIDs(doc.RID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{model.ChunkRID(doc.ContentHash, 0)}, rids)
	})
}

func TestChunksSimilaritySearch(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	documentsDbHandler, err := NewDocumentsDBHandler(database, true)
	require.NoError(t, err)
	chunksDbHandler, err := NewChunksDBHandler(database, testEmbeddingDim, true)
	require.NoError(t, err)

	doc := insertTestDocument(t, documentsDbHandler, "hash-similarity")

	// Three chunks pointing in different directions
	for i := 0; i < 3; i++ {
		chunk := &model.Chunk{
			RID:        model.ChunkRID(doc.ContentHash, i),
			DocumentID: doc.ID,
			Content:    "chunk content",
			Pages:      []int64{int64(i + 1)},
			ChunkIndex: i,
			Embedding:  testVector(testEmbeddingDim, i),
		}
		require.NoError(t, chunksDbHandler.UpsertChunk(chunk))
	}
	_, err = documentsDbHandler.ActivateDocument(doc.RID)
	require.NoError(t, err)

	t.Run("Nearest chunk comes back first", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, testVector(testEmbeddingDim, 1), 3)
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		assert.Equal(t, 1, chunks[0].ChunkIndex, "Expected the aligned chunk to rank first")
		assert.InDelta(t, 1.0, chunks[0].Similarity, 1e-6, "Expected perfect cosine similarity for the aligned chunk")
		assert.GreaterOrEqual(t, chunks[0].Similarity, chunks[1].Similarity, "Expected descending similarity order")
		assert.GreaterOrEqual(t, chunks[1].Similarity, chunks[2].Similarity, "Expected descending similarity order")
	})

	t.Run("Limit is respected", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, testVector(testEmbeddingDim, 0), 2)
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("No duplicate chunk RIDs in results", func(t *testing.T) {
		chunks, err := chunksDbHandler.SelectChunksBySimilarity(ctx, testVector(testEmbeddingDim, 0), 10)
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, chunk := range chunks {
			assert.False(t, seen[chunk.RID.String()], "Expected no duplicate chunk RIDs")
			seen[chunk.RID.String()] = true
		}
	})
}
