// Package memory keeps resolved-graph snapshots in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ifcquery/internal/persistence"
)

var _ persistence.Store = (*Store)(nil)

type Store struct {
	mu        sync.RWMutex
	snapshots map[string]persistence.Snapshot
}

func NewStore() *Store {
	return &Store{snapshots: make(map[string]persistence.Snapshot)}
}

func (s *Store) SaveSnapshot(_ context.Context, snap persistence.Snapshot) error {
	if snap.ModelID == "" {
		return errors.New("save snapshot: empty model id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ModelID] = snap.Clone()
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context, modelID string) (persistence.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[modelID]
	if !ok {
		return persistence.Snapshot{}, fmt.Errorf("%s: %w", modelID, persistence.ErrSnapshotNotFound)
	}
	return snap.Clone(), nil
}

func (s *Store) DeleteSnapshot(_ context.Context, modelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snapshots[modelID]
	delete(s.snapshots, modelID)
	return ok, nil
}

func (s *Store) ListSnapshots(context.Context) ([]persistence.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]persistence.Summary, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out, nil
}

func (s *Store) Close() error { return nil }
