package storage

import (
	"context"
	"sync"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// MemoryStore is an in-memory card store. Records do not survive process
// restarts; the provisioning workflow falls back to issuer card listings
// when the store is cold.
type MemoryStore struct {
	mu    sync.RWMutex
	cards map[string]string
}

// NewMemoryStore creates an empty in-memory card store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cardID, ok := s.cards[userID]
	if !ok {
		return "", interfaces.ErrCardNotRecorded
	}
	return cardID, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cards[userID] = cardID
	return nil
}

func (s *MemoryStore) Available(ctx context.Context) bool { return true }

func (s *MemoryStore) Name() string { return "memory" }
