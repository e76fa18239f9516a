package store

import (
	"context"

	"github.com/nhle/notification-engine/internal/model"
)

// Store persists engine snapshots between runs.
type Store interface {
	// SaveSnapshot replaces all persisted state with s.
	SaveSnapshot(ctx context.Context, s model.Snapshot) error

	// LoadSnapshot returns the persisted state. An empty store yields an
	// empty snapshot and no error.
	LoadSnapshot(ctx context.Context) (model.Snapshot, error)

	Close() error
}
