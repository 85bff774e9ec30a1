package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attemptStore is the contract every backend satisfies
type attemptStore interface {
	Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error)
	Upsert(ctx context.Context, rec *models.AttemptRecord) error
	Delete(ctx context.Context, clientAddress string) error
	Ping(ctx context.Context) error
}

// runAttemptStoreContract exercises get/upsert/delete semantics shared by all backends
func runAttemptStoreContract(t *testing.T, store attemptStore) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		rec, err := store.Get(ctx, "10.0.0.1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, rec)
	})

	t.Run("upsert then get", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, &models.AttemptRecord{
			ClientAddress: "10.0.0.2",
			AttemptCount:  2,
			LastAttemptAt: base,
		}))

		rec, err := store.Get(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.2", rec.ClientAddress)
		assert.Equal(t, 2, rec.AttemptCount)
		assert.True(t, base.Equal(rec.LastAttemptAt), "last attempt %v, want %v", rec.LastAttemptAt, base)
		assert.Nil(t, rec.LockedUntil)
	})

	t.Run("upsert replaces existing record", func(t *testing.T) {
		lockedUntil := base.Add(15 * time.Minute)
		require.NoError(t, store.Upsert(ctx, &models.AttemptRecord{
			ClientAddress: "10.0.0.2",
			AttemptCount:  5,
			LastAttemptAt: base.Add(time.Minute),
			LockedUntil:   &lockedUntil,
		}))

		rec, err := store.Get(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, 5, rec.AttemptCount)
		require.NotNil(t, rec.LockedUntil)
		assert.True(t, lockedUntil.Equal(*rec.LockedUntil))

		// clearing the lock is persisted too
		rec.LockedUntil = nil
		rec.AttemptCount = 0
		require.NoError(t, store.Upsert(ctx, rec))

		rec, err = store.Get(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.AttemptCount)
		assert.Nil(t, rec.LockedUntil)
	})

	t.Run("records are keyed by address", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, &models.AttemptRecord{ClientAddress: "10.0.0.3", AttemptCount: 1, LastAttemptAt: base}))
		require.NoError(t, store.Upsert(ctx, &models.AttemptRecord{ClientAddress: "10.0.0.4", AttemptCount: 4, LastAttemptAt: base}))

		a, err := store.Get(ctx, "10.0.0.3")
		require.NoError(t, err)
		b, err := store.Get(ctx, "10.0.0.4")
		require.NoError(t, err)
		assert.Equal(t, 1, a.AttemptCount)
		assert.Equal(t, 4, b.AttemptCount)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, &models.AttemptRecord{ClientAddress: "10.0.0.5", AttemptCount: 3, LastAttemptAt: base}))

		require.NoError(t, store.Delete(ctx, "10.0.0.5"))
		require.NoError(t, store.Delete(ctx, "10.0.0.5"))

		_, err := store.Get(ctx, "10.0.0.5")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
