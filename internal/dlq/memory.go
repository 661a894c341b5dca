package dlq

import (
	"context"
	"sync"

	"confide/pkg/errors"
)

// MemoryStore keeps records in process memory: an ordered id slice for
// range listing plus an id index for lookups.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

func (s *MemoryStore) Push(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return errors.ErrConflict.WithDetail("message", "record id already stored")
	}

	s.order = append(s.order, record.ID)
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) List(_ context.Context, start, end int) ([]*Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	if start >= total {
		return nil, total, nil
	}
	if end >= total {
		end = total - 1
	}

	out := make([]*Record, 0, end-start+1)
	for _, id := range s.order[start : end+1] {
		out = append(out, s.records[id])
	}
	return out, total, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, errors.ErrNotFound.WithDetail("message", "DLQ record not found")
	}
	return record, nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return errors.ErrNotFound.WithDetail("message", "DLQ record not found")
	}

	delete(s.records, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Drain(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.order)
	s.order = nil
	s.records = make(map[string]*Record)
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}
