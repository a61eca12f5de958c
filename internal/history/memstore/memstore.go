// Package memstore provides an in-memory implementation of history.Store.
// Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/argus/internal/history"
)

// Store holds history records in memory in append order.
type Store struct {
	mu      sync.RWMutex
	records []history.Record
	byID    map[string]int
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{byID: make(map[string]int)}
}

// Append stores a copy of the record at the end of the sequence.
func (s *Store) Append(_ context.Context, rec *history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, *rec)
	return nil
}

// Get retrieves a record by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*history.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := s.records[i]
	return &cp, true, nil
}

// List returns a copy of all records in append order.
func (s *Store) List(_ context.Context) ([]history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]history.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}
