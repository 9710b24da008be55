// Package store keeps fetched randomness per run so a retried run commits to
// the same provider samples instead of fetching fresh ones.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fairdraw/internal/randomness"
	"fairdraw/pkg/platform/sentinel"
)

// InMemory stores snapshots in process memory.
type InMemory struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{snapshots: make(map[string][]byte)}
}

// Save stores a deep copy of the result.
func (s *InMemory) Save(_ context.Context, runID string, res *randomness.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal randomness snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[runID] = b
	return nil
}

// Load returns sentinel.ErrNotFound when no snapshot exists for runID.
func (s *InMemory) Load(_ context.Context, runID string) (*randomness.Result, error) {
	s.mu.RLock()
	b, ok := s.snapshots[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var res randomness.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("unmarshal randomness snapshot: %w", err)
	}
	return &res, nil
}

// Delete removes a snapshot; deleting a missing snapshot is not an error.
func (s *InMemory) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, runID)
	return nil
}
