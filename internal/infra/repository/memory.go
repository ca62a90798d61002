package repository

import (
	"context"
	"sync"

	irepository "voice-connector/internal/domain/interfaces/repository"
)

// MemoryRepository keeps documents in process memory. It is used when no
// MongoDB URI is configured and in tests.
type MemoryRepository[T any] struct {
	mu          sync.RWMutex
	collections map[string]map[string]T
}

func NewMemoryRepository[T any]() *MemoryRepository[T] {
	return &MemoryRepository[T]{collections: make(map[string]map[string]T)}
}

func (r *MemoryRepository[T]) Update(ctx context.Context, collectionName string, key string, entity T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collection(collectionName)[key] = entity
	return entity, nil
}

func (r *MemoryRepository[T]) FindByKey(ctx context.Context, collectionName string, key string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.collections[collectionName][key]
	if !ok {
		var zero T
		return zero, irepository.ErrNotFound
	}
	return entity, nil
}

func (r *MemoryRepository[T]) collection(name string) map[string]T {
	docs, ok := r.collections[name]
	if !ok {
		docs = make(map[string]T)
		r.collections[name] = docs
	}
	return docs
}
