package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"hebedit/internal/editor/model"
)

// MemoryStore keeps records as serialized JSON, like a browser's
// localStorage, so every Get decodes a fresh copy.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.PersistedRecord, bool, error) {
	s.mu.RLock()
	raw, ok := s.records[key]
	s.mu.RUnlock()

	var rec model.PersistedRecord
	if !ok {
		return rec, false, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false, fmt.Errorf("decode record %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, rec model.PersistedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}

	s.mu.Lock()
	s.records[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
