package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chat-widget/internal/domain"
)

// Memory keeps conversation history in process. History is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
	count map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		turns: make(map[string][]domain.Turn),
		count: make(map[string]int),
	}
}

func (m *Memory) GetConversationTurnCount(_ context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count[conversationID], nil
}

func (m *Memory) GetHistory(_ context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[conversationID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *Memory) SaveCompletedTurn(_ context.Context, conversationID, message, reply string, turns int) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("repository: SaveCompletedTurn: conversation id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[conversationID] = append(m.turns[conversationID], domain.Turn{
		PK:             convPK(conversationID),
		ConversationID: conversationID,
		Message:        message,
		Reply:          reply,
		Status:         statusComplete,
	})
	m.count[conversationID] = turns
	return nil
}
