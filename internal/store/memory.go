package store

import (
	"context"
	"sync"
)

// memoryStore is the fully volatile backing. State lives for the lifetime
// of the process; a restart resets every member to defaults.
type memoryStore struct {
	mu          sync.RWMutex
	avail       map[string]AvailabilityRecord
	credentials map[string]CredentialRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		avail:       make(map[string]AvailabilityRecord),
		credentials: make(map[string]CredentialRecord),
	}
}

func (s *memoryStore) GetAvailability(_ context.Context, memberID string) (AvailabilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avail[memberID], nil
}

func (s *memoryStore) SetAvailability(_ context.Context, memberID string, rec AvailabilityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avail[memberID] = rec
	return nil
}

func (s *memoryStore) GetCredential(_ context.Context, memberID string) (*CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.credentials[memberID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memoryStore) SetCredential(_ context.Context, memberID string, rec CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[memberID] = rec
	return nil
}

func (s *memoryStore) CredentialHolders(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holders := make([]string, 0, len(s.credentials))
	for id := range s.credentials {
		holders = append(holders, id)
	}
	return holders, nil
}

func (s *memoryStore) Close() error { return nil }
