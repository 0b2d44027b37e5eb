package repository

import (
	"context"

	"hebedit/internal/editor/model"
)

// Store is a key-value store for persisted editor records. Keys are opaque;
// a session only ever uses one.
type Store interface {
	// Get returns the record under key. The bool is false when nothing is
	// stored.
	Get(ctx context.Context, key string) (model.PersistedRecord, bool, error)
	Set(ctx context.Context, key string, rec model.PersistedRecord) error
	Delete(ctx context.Context, key string) error
}
