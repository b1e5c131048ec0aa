package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("new event ID is newly marked", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		isNew, err := store.MarkProcessed(ctx, "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("second mark of the same ID returns false", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		isNew, err := store.MarkProcessed(ctx, "event-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "event-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired ID can be marked again", func(t *testing.T) {
		now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		store := NewInMemoryIdempotencyStore().WithClock(func() time.Time { return now })
		defer store.Close()

		isNew, err := store.MarkProcessed(ctx, "event-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		now = now.Add(2 * time.Minute)

		isNew, err = store.MarkProcessed(ctx, "event-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore().WithClock(func() time.Time { return now })
	defer store.Close()

	processed, err := store.IsProcessed(ctx, "unknown-event")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "seen-event", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "seen-event")
	require.NoError(t, err)
	assert.True(t, processed)

	now = now.Add(2 * time.Minute)

	processed, err = store.IsProcessed(ctx, "seen-event")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_EvictsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryIdempotencyStore().WithClock(func() time.Time { return now })
	defer store.Close()

	_, err := store.MarkProcessed(ctx, "short-lived", time.Minute)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "long-lived", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, store.Size())

	now = now.Add(10 * time.Minute)
	store.evictExpired()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
