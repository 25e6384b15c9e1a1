package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileState is the on-disk document: both maps in one JSON file.
type fileState struct {
	Availability map[string]AvailabilityRecord `json:"availability"`
	Credentials  map[string]CredentialRecord   `json:"credentials"`
}

// fileStore persists state to a local JSON file using atomic writes
// (temp file + rename). The whole document is rewritten on every set,
// which is fine at team-roster scale.
type fileStore struct {
	mu       sync.RWMutex
	filePath string
	state    fileState
}

// NewFileStore creates a file-backed store at the given path, loading any
// existing state. A missing file is not an error; a corrupt file is.
func NewFileStore(path string) (Store, error) {
	s := &fileStore{
		filePath: path,
		state: fileState{
			Availability: make(map[string]AvailabilityRecord),
			Credentials:  make(map[string]CredentialRecord),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse state file %s: %w", s.filePath, err)
	}
	if state.Availability == nil {
		state.Availability = make(map[string]AvailabilityRecord)
	}
	if state.Credentials == nil {
		state.Credentials = make(map[string]CredentialRecord)
	}
	s.state = state
	return nil
}

// save writes state to disk. Caller must hold at least a read lock.
func (s *fileStore) save() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *fileStore) GetAvailability(_ context.Context, memberID string) (AvailabilityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Availability[memberID], nil
}

func (s *fileStore) SetAvailability(_ context.Context, memberID string, rec AvailabilityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Availability[memberID] = rec
	return s.save()
}

func (s *fileStore) GetCredential(_ context.Context, memberID string) (*CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state.Credentials[memberID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fileStore) SetCredential(_ context.Context, memberID string, rec CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Credentials[memberID] = rec
	return s.save()
}

func (s *fileStore) CredentialHolders(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holders := make([]string, 0, len(s.state.Credentials))
	for id := range s.state.Credentials {
		holders = append(holders, id)
	}
	return holders, nil
}

func (s *fileStore) Close() error { return nil }
