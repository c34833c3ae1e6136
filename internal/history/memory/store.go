// Package memory provides an in-memory history store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"nft-market-client/internal/domain"
	"nft-market-client/internal/history"
)

// Store is a thread-safe in-memory implementation of history.Store.
type Store struct {
	mu      sync.RWMutex
	byHash  map[string]*history.Record
	ordered []*history.Record
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{byHash: make(map[string]*history.Record)}
}

// Insert adds a record. Returns history.ErrDuplicateTx if the hash exists.
func (s *Store) Insert(_ context.Context, r *history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[r.Hash]; exists {
		return history.ErrDuplicateTx
	}
	cp := *r
	s.byHash[r.Hash] = &cp
	s.ordered = append(s.ordered, &cp)
	return nil
}

// GetByHash retrieves a record. Returns history.ErrNotFound if not exists.
func (s *Store) GetByHash(_ context.Context, hash string) (*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byHash[hash]
	if !ok {
		return nil, history.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetByActor retrieves all records for an actor, newest first.
func (s *Store) GetByActor(_ context.Context, actor domain.Address) ([]*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*history.Record
	for _, r := range s.ordered {
		if r.Actor == actor {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}
