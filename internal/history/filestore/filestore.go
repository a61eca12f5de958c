// Package filestore persists history as a single JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/linnemanlabs/argus/internal/history"
)

// Store keeps the full history in one JSON array file. Appends are
// serialized behind a mutex; this protects concurrent pipeline runs within
// one process. Cross-process writers need the Postgres backend instead.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the given file path. The file may not exist
// yet; readers treat that as an empty history.
func New(path string) *Store {
	return &Store{path: path}
}

// Append adds one record to the end of the stored sequence.
func (s *Store) Append(_ context.Context, rec *history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, *rec)
	return s.write(records)
}

// Get retrieves a record by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*history.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, false, err
	}
	for i := range records {
		if records[i].ID == id {
			cp := records[i]
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// List returns all records in append order.
func (s *Store) List(_ context.Context) ([]history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]history.Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []history.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []history.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", s.path, err)
	}
	return records, nil
}

// write replaces the document via a temp file and rename so a crash
// mid-write cannot truncate existing history.
func (s *Store) write(records []history.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
