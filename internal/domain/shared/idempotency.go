package shared

import (
	"context"
	"time"
)

// IdempotencyStore claims keys of operations that must run at most once,
// such as capturing a PayPal order. Claims are shared by every storefront
// instance that uses the same store.
type IdempotencyStore interface {
	// Claim takes key for ttl.
	// Returns true if the key was free, false if someone already holds it
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Held checks whether key is currently claimed
	Held(ctx context.Context, key string) (bool, error)

	// Release frees key so the operation may be tried again
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
