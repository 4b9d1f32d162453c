package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Sets are kept serialized so callers never share slices with the store.
type MemoryStore struct {
	sets map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		sets: make(map[string][]byte),
	}
}

// LoadAccounts returns the account set of a session
func (s *MemoryStore) LoadAccounts(ctx context.Context, sessionID string) (*core.AccountSet, error) {
	s.mu.RLock()
	data, exists := s.sets[sessionID]
	s.mu.RUnlock()

	if !exists {
		return core.NewAccountSet(), nil
	}
	return decodeAccountSet(data)
}

// SaveAccounts replaces the account set of a session
func (s *MemoryStore) SaveAccounts(ctx context.Context, sessionID string, set *core.AccountSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[sessionID] = data
	return nil
}

// DeleteAccounts forgets the account set of a session
func (s *MemoryStore) DeleteAccounts(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, sessionID)
	return nil
}

func decodeAccountSet(data []byte) (*core.AccountSet, error) {
	set := core.NewAccountSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	set.Normalize()
	return set, nil
}
