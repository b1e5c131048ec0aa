package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs have been handled so a
// redelivered event is processed exactly once within the TTL window.
type IdempotencyStore interface {
	// MarkProcessed records an event ID with a TTL. It reports true when
	// the ID was newly recorded and false when it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID has been recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources
	Close() error
}

// IdempotencyConfig controls event deduplication
type IdempotencyConfig struct {
	// TTL bounds how long a processed event ID is remembered. Once it
	// expires the same ID would be processed again.
	TTL time.Duration

	// Enabled turns deduplication off entirely when false
	Enabled bool
}

// DefaultIdempotencyConfig keeps processed IDs for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
