package memory

import (
	"context"
	"sort"
	"sync"

	audit "fairdraw/pkg/platform/audit"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[int]audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[int]audit.Record)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[int]audit.Record)
}

// Append keeps the first record written at each (run, index) position.
func (s *InMemoryStore) Append(_ context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		byIndex, ok := s.records[r.RunID]
		if !ok {
			byIndex = make(map[int]audit.Record)
			s.records[r.RunID] = byIndex
		}
		if _, exists := byIndex[r.Index]; exists {
			continue
		}
		r.Payload = append([]byte(nil), r.Payload...)
		byIndex[r.Index] = r
	}
	return nil
}

// ListByRun returns a run's records in chain order.
func (s *InMemoryStore) ListByRun(_ context.Context, runID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Record, 0, len(s.records[runID]))
	for _, r := range s.records[runID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out, nil
}
