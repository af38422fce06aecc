package pipeline

import (
	"fmt"
	"strings"

	"github.com/siherrmann/docqa/model"
)

// ChunkFunc splits a loaded document into ordered chunks.
type ChunkFunc func(document *model.Document) ([]*model.Chunk, error)

// WindowChunker creates a chunker that slides a fixed-size character window
// over the concatenated page text. Consecutive chunks overlap by chunkOverlap
// characters so sentences crossing a boundary stay retrievable. Positions are
// counted in runes, not bytes, so multi-byte text chunks cleanly.
func WindowChunker(chunkSize int, chunkOverlap int) ChunkFunc {
	return func(document *model.Document) ([]*model.Chunk, error) {
		if chunkSize <= 0 {
			return nil, &model.ConfigError{Field: "ChunkSize", Reason: "chunk size must be positive"}
		}
		if chunkOverlap < 0 {
			return nil, &model.ConfigError{Field: "ChunkOverlap", Reason: "chunk overlap must not be negative"}
		}
		if chunkOverlap >= chunkSize {
			return nil, &model.ConfigError{Field: "ChunkOverlap", Reason: "chunk overlap must be smaller than chunk size"}
		}

		text := document.Text()
		if strings.TrimSpace(text) == "" {
			return []*model.Chunk{}, nil
		}

		runes := []rune(text)
		offsets := pageOffsets(document.Pages)
		step := chunkSize - chunkOverlap

		var chunks []*model.Chunk
		chunkIndex := 0
		for start := 0; start < len(runes); start += step {
			end := start + chunkSize
			if end > len(runes) {
				end = len(runes)
			}

			content := string(runes[start:end])
			if strings.TrimSpace(content) != "" {
				chunks = append(chunks, &model.Chunk{
					RID:        model.ChunkRID(document.ContentHash, chunkIndex),
					DocumentID: document.ID,
					Content:    content,
					Pages:      pagesInRange(document.Pages, offsets, start, end),
					StartPos:   start,
					EndPos:     end,
					ChunkIndex: chunkIndex,
					Metadata: map[string]interface{}{
						"document_title": document.Title,
					},
				})
				chunkIndex++
			}

			if end == len(runes) {
				break
			}
		}

		return chunks, nil
	}
}

// pageOffsets returns the starting rune offset of each page within the
// concatenated document text. Pages are joined with a single newline, so
// each page starts one rune after the previous page ends.
func pageOffsets(pages []model.Page) []int {
	offsets := make([]int, len(pages))
	pos := 0
	for i, page := range pages {
		offsets[i] = pos
		pos += len([]rune(page.Text)) + 1
	}
	return offsets
}

// pagesInRange returns the page numbers whose text overlaps the rune
// range [start, end) of the concatenated document text.
func pagesInRange(pages []model.Page, offsets []int, start int, end int) []int64 {
	var result []int64
	for i, page := range pages {
		pageStart := offsets[i]
		pageEnd := pageStart + len([]rune(page.Text))
		if pageStart < end && pageEnd > start {
			result = append(result, int64(page.Number))
		}
	}
	if len(result) == 0 && len(pages) > 0 {
		// Range falls entirely on a join boundary, attribute it to the
		// page the boundary follows.
		for i := len(pages) - 1; i >= 0; i-- {
			if offsets[i] <= start {
				result = append(result, int64(pages[i].Number))
				break
			}
		}
	}
	return result
}

// ChunkStats summarizes a chunking run for logging.
func ChunkStats(chunks []*model.Chunk) string {
	if len(chunks) == 0 {
		return "0 chunks"
	}
	total := 0
	for _, chunk := range chunks {
		total += len([]rune(chunk.Content))
	}
	return fmt.Sprintf("%d chunks, %d characters, %d characters average", len(chunks), total, total/len(chunks))
}
