package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOutboxEntry(t *testing.T) *OutboxEntry {
	t.Helper()
	event := NewBaseDomainEvent("ReturnCompleted", "Return", uuid.New(), uuid.New())
	return NewOutboxEntry(event.TenantID(), &event, []byte(`{"return_id":"x"}`))
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	t.Run("pending to sent", func(t *testing.T) {
		entry := testOutboxEntry(t)
		assert.Equal(t, OutboxStatusPending, entry.Status)

		require.NoError(t, entry.MarkProcessing())
		entry.MarkSent()
		assert.Equal(t, OutboxStatusSent, entry.Status)
		require.NotNil(t, entry.ProcessedAt)

		err := entry.MarkProcessing()
		assert.Error(t, err)
	})

	t.Run("failure backs off exponentially", func(t *testing.T) {
		entry := testOutboxEntry(t)
		require.NoError(t, entry.MarkProcessing())

		before := time.Now()
		entry.MarkFailed("broker unavailable")
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		require.NotNil(t, entry.NextRetryAt)
		assert.WithinDuration(t, before.Add(DefaultBaseBackoff), *entry.NextRetryAt, time.Second)

		entry.MarkFailed("broker unavailable")
		assert.WithinDuration(t, time.Now().Add(2*DefaultBaseBackoff), *entry.NextRetryAt, time.Second)
		assert.True(t, entry.CanRetry())
	})

	t.Run("exhausted retries go to dead letter", func(t *testing.T) {
		entry := testOutboxEntry(t)
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("broker unavailable")
		}
		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
	})

	t.Run("dead letter entries can be reset", func(t *testing.T) {
		entry := testOutboxEntry(t)
		for i := 0; i < DefaultMaxRetries; i++ {
			entry.MarkFailed("broker unavailable")
		}

		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)

		// only dead entries reset
		assert.Error(t, entry.ResetForRetry())
	})
}
