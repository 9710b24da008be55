// Package store persists published runs.
package store

import (
	"context"
	"slices"
	"sync"

	"fairdraw/internal/run"
	"fairdraw/pkg/platform/sentinel"
)

// InMemory keeps runs in process memory.
type InMemory struct {
	mu   sync.RWMutex
	runs map[string]run.Run
}

func NewInMemory() *InMemory {
	return &InMemory{runs: make(map[string]run.Run)}
}

// Save stores a copy of r. Runs are immutable once published.
func (s *InMemory) Save(_ context.Context, r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[r.RunID]; exists {
		return sentinel.ErrConflict
	}
	s.runs[r.RunID] = clone(*r)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, runID string) (*run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(r)
	return &out, nil
}

func clone(r run.Run) run.Run {
	r.Winners = slices.Clone(r.Winners)
	r.Waitlist = slices.Clone(r.Waitlist)
	return r
}
