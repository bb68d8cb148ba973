package storage

import (
	"context"
	"sync"

	"github.com/Alias1177/SignalBot/models"
)

// MemoryStore keeps the state in process, copies in and out
type MemoryStore struct {
	mu    sync.Mutex
	state models.EngineState
	saves int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (models.EngineState, error) {
	if err := ctx.Err(); err != nil {
		return models.EngineState{}, models.Fail(models.ErrStoreIO, "load state", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, state models.EngineState) error {
	if err := ctx.Err(); err != nil {
		return models.Fail(models.ErrStoreIO, "save state", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	return nil
}
