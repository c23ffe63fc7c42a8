package cart

import "context"

// SnapshotStore keeps the authoritative snapshot of every storefront session.
// Get reports false when the session has no snapshot yet.
type SnapshotStore interface {
	Get(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Set(ctx context.Context, sessionID string, snap Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}
