package store

import (
	"errors"
	"slices"
	"sync"

	"github.com/i474232898/air-quality-aggregation/internal/ward"
)

var (
	// ErrNotFound is returned when no board has been built yet or a ward id is unknown.
	ErrNotFound = errors.New("no ward data available")

	// ErrEmptyBoard rejects boards without wards so a broken refresh never
	// replaces a usable one.
	ErrEmptyBoard = errors.New("board has no wards")
)

// MemoryStore is a concurrency-safe in-memory holder of the latest ward board.
type MemoryStore struct {
	mu     sync.RWMutex
	latest *ward.Board
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveBoard replaces the stored board.
func (s *MemoryStore) SaveBoard(b ward.Board) error {
	if len(b.Wards) == 0 {
		return ErrEmptyBoard
	}

	b.Wards = slices.Clone(b.Wards)
	b.Stations = slices.Clone(b.Stations)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &b
	return nil
}

// Latest returns the most recent board.
func (s *MemoryStore) Latest() (ward.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return ward.Board{}, ErrNotFound
	}
	b := *s.latest
	b.Wards = slices.Clone(b.Wards)
	b.Stations = slices.Clone(b.Stations)
	return b, nil
}

// Ward returns one ward of the latest board.
func (s *MemoryStore) Ward(id int) (ward.Ward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return ward.Ward{}, ErrNotFound
	}
	w, ok := s.latest.Ward(id)
	if !ok {
		return ward.Ward{}, ErrNotFound
	}
	return w, nil
}
