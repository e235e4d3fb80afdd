package store

import (
	"context"
	"sync"

	"github.com/heygen-community/heygen-streaming/internal/session"
)

// MemoryStore is the default, non-persistent backend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]session.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]session.Record)}
}

func (s *MemoryStore) Put(_ context.Context, rec *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*session.Record, 0, len(s.records))
	for _, rec := range s.records {
		r := rec
		out = append(out, &r)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.records, sessionID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
