// Package memory implements the storage capability in process. It is meant
// for local development and tests; records do not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/storage"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

// Store is a mutex guarded map keyed by the schema key.
type Store[T any] struct {
	mu      sync.RWMutex
	schema  domain.Schema[T]
	records map[string]T
	closed  bool
}

var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

func New[T any](schema domain.Schema[T]) *Store[T] {
	return &Store[T]{schema: schema, records: make(map[string]T)}
}

func (s *Store[T]) Initialize(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

func (s *Store[T]) Create(_ context.Context, record T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if err := s.checkOpen(); err != nil {
		return zero, err
	}
	key := s.schema.Key(record)
	if _, exists := s.records[key]; exists {
		return zero, apperrors.NewConflict(fmt.Sprintf("%s already exists", s.schema.Resource()), nil)
	}
	s.records[key] = record
	return record, nil
}

func (s *Store[T]) Get(_ context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	if err := s.checkOpen(); err != nil {
		return zero, false, err
	}
	record, ok := s.records[id]
	return record, ok, nil
}

func (s *Store[T]) List(context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	records := make([]T, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return s.schema.Less(records[i], records[j]) })
	return records, nil
}

func (s *Store[T]) Update(_ context.Context, id string, record T) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if err := s.checkOpen(); err != nil {
		return zero, false, err
	}
	stored, ok := s.records[id]
	if !ok {
		return zero, false, nil
	}
	merged := s.schema.Merge(stored, record)
	s.records[id] = merged
	return merged, true, nil
}

func (s *Store[T]) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store[T]) checkOpen() error {
	if s.closed {
		return apperrors.NewUnavailable(storage.ErrClosed)
	}
	return nil
}
