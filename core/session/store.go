package session

import (
	"sync"
	"time"

	"github.com/siherrmann/docqa/model"
)

// ConversationStore keeps per-session conversation history in memory.
// Histories are append-only, a reset removes the whole session. Safe for
// concurrent use.
type ConversationStore struct {
	mu       sync.RWMutex
	sessions map[string][]model.ConversationTurn
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{sessions: map[string][]model.ConversationTurn{}}
}

// Append adds one completed turn to the session, creating the session on
// first use.
func (s *ConversationStore) Append(sessionID string, question string, answer string, citedPages []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], model.ConversationTurn{
		Question:   question,
		Answer:     answer,
		CitedPages: citedPages,
		CreatedAt:  time.Now(),
	})
}

// Recent returns up to n of the latest turns, oldest first. The returned
// slice is a copy.
func (s *ConversationStore) Recent(sessionID string, n int) []model.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	copied := make([]model.ConversationTurn, len(turns))
	copy(copied, turns)
	return copied
}

// History returns the full history of the session, oldest first. The
// returned slice is a copy.
func (s *ConversationStore) History(sessionID string) []model.ConversationTurn {
	return s.Recent(sessionID, 0)
}

// Reset removes the session and its history. Resetting an unknown session
// is a no-op.
func (s *ConversationStore) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of turns stored for the session.
func (s *ConversationStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
