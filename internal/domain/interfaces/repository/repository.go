package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FindByKey when no document matches.
var ErrNotFound = errors.New("document not found")

// Repository stores documents addressed by a unique key. Update inserts the
// document when the key is new.
type Repository[T any] interface {
	Update(ctx context.Context, collectionName string, key string, entity T) (T, error)
	FindByKey(ctx context.Context, collectionName string, key string) (T, error)
}
