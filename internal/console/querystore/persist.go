package querystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// PersistedView is the piece of view state that survives a restart: the
// active filters and the currently expanded order. It is a convenience cache
// only; the server's response stays the source of truth.
type PersistedView struct {
	Filters         Filters `json:"filters"`
	ExpandedOrderID string  `json:"expandedOrderId"`
}

// ViewStore is the persistence port for the query store. Injecting it keeps
// the store free of hidden I/O.
type ViewStore interface {
	Load() (*PersistedView, error)
	Save(view *PersistedView) error
}

// FileViewStore keeps the view state in a JSON file.
type FileViewStore struct {
	mu       sync.Mutex
	filename string
}

func NewFileViewStore(filename string) *FileViewStore {
	return &FileViewStore{filename: filename}
}

func (s *FileViewStore) Load() (*PersistedView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read view state: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var view PersistedView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to decode view state: %w", err)
	}
	return &view, nil
}

func (s *FileViewStore) Save(view *PersistedView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode view state: %w", err)
	}
	if err := os.WriteFile(s.filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write view state: %w", err)
	}
	return nil
}

// MemoryViewStore is the in-memory stub used by tests.
type MemoryViewStore struct {
	mu   sync.Mutex
	view *PersistedView
}

func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{}
}

func (s *MemoryViewStore) Load() (*PersistedView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, nil
	}
	copied := *s.view
	return &copied, nil
}

func (s *MemoryViewStore) Save(view *PersistedView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *view
	s.view = &copied
	return nil
}
