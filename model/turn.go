package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn is one question/answer exchange within a session.
// Turns are append-only and owned by a single session.
type ConversationTurn struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CitedPages []int64   `json:"cited_pages,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnswerStatus is the terminal state of one query. The presentation layer
// only ever sees one of these, never a raw error.
type AnswerStatus string

const (
	StatusAnswered            AnswerStatus = "answered"
	StatusInsufficientContext AnswerStatus = "insufficient_context"
	StatusFailed              AnswerStatus = "failed"
)

// Source describes one retrieved passage backing an answer, with a short
// content preview for display.
type Source struct {
	Page       int64   `json:"page"`
	Preview    string  `json:"preview"`
	Similarity float64 `json:"similarity"`
}

// Answer is the user-facing result of one question.
type Answer struct {
	Text          string       `json:"text"`
	Citations     []int64      `json:"citations,omitempty"`
	Sources       []Source     `json:"sources,omitempty"`
	Status        AnswerStatus `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// BuildReport summarizes one index build.
type BuildReport struct {
	DocumentRID     uuid.UUID   `json:"document_rid"`
	ChunksIndexed   int         `json:"chunks_indexed"`
	ChunksFailed    int         `json:"chunks_failed"`
	FailedChunkRIDs []uuid.UUID `json:"failed_chunk_rids,omitempty"`
	Skipped         bool        `json:"skipped"` // True when an unchanged document short-circuited the build
	Resumed         bool        `json:"resumed"` // True when only previously failed chunks were embedded
}
