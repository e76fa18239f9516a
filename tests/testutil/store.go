package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/store"
)

// NewTestStore returns a migrated in-memory snapshot store, closed when the
// test ends. When seed is given it is saved before the store is returned.
func NewTestStore(t *testing.T, seed ...model.Snapshot) *store.SQLiteStore {
	t.Helper()
	return OpenTestStore(t, ":memory:", seed...)
}

// OpenTestStore is NewTestStore for an on-disk database at path.
func OpenTestStore(t *testing.T, path string, seed ...model.Snapshot) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err, "opening snapshot store %s", path)
	t.Cleanup(func() { _ = s.Close() })

	for _, snap := range seed {
		require.NoError(t, s.SaveSnapshot(context.Background(), snap), "seeding snapshot store")
	}
	return s
}
