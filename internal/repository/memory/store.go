// Package memory provides an in-process DurableStore.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
)

// Store keeps the document in memory. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	doc     repository.Document
	version uint64
}

var _ repository.DurableStore = (*Store)(nil)

// New returns an empty store.
func New() *Store { return &Store{} }

// Load implements repository.DurableStore.
func (s *Store) Load(ctx context.Context) (repository.Document, uint64, error) {
	if err := ctx.Err(); err != nil {
		return repository.Document{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone(), s.version, nil
}

// CompareAndSwap implements repository.DurableStore.
func (s *Store) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != expected {
		return 0, fmt.Errorf("memory store at version %d, expected %d: %w", s.version, expected, errs.ErrVersionConflict)
	}
	s.doc = doc.Clone()
	s.version++
	return s.version, nil
}
