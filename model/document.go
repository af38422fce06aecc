package model

import (
	"time"

	"github.com/google/uuid"
)

// Page is one page of extracted text, 1-indexed. Pages are never mutated
// after extraction.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document represents the source document of the index. A document is
// immutable once ingested, a changed content hash requires re-ingestion
// and invalidates all chunks derived from it.
type Document struct {
	ID          int64     `json:"id"`
	RID         uuid.UUID `json:"rid"`
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	ContentHash string    `json:"content_hash"`
	PageCount   int       `json:"page_count"`
	Active      bool      `json:"active"`
	Pages       []Page    `json:"pages,omitempty" db:"-"` // Transient, used during ingestion only
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Text returns the concatenated page text in reading order, pages joined
// with a single newline.
func (d *Document) Text() string {
	total := 0
	for _, page := range d.Pages {
		total += len(page.Text) + 1
	}

	out := make([]byte, 0, total)
	for i, page := range d.Pages {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, page.Text...)
	}
	return string(out)
}
