package cache

import (
	"context"
	"sync"
	"time"

	"github.com/gamestore/storefront/internal/domain/cart"
)

type snapshotEntry struct {
	snap      cart.Snapshot
	expiresAt time.Time
}

// InMemorySnapshotStore keeps cart snapshots in process memory.
// This is suitable for single-instance deployments and testing.
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	entries   map[string]snapshotEntry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySnapshotStore creates a store and starts its expiry sweeper
func NewInMemorySnapshotStore(ttl time.Duration) *InMemorySnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &InMemorySnapshotStore{
		entries:  make(map[string]snapshotEntry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Get returns the stored snapshot of a session
func (s *InMemorySnapshotStore) Get(_ context.Context, sessionID string) (cart.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		return cart.Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

// Set replaces the stored snapshot of a session
func (s *InMemorySnapshotStore) Set(_ context.Context, sessionID string, snap cart.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = snapshotEntry{snap: snap, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// Delete removes the stored snapshot of a session
func (s *InMemorySnapshotStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID)
	return nil
}

// Size returns the number of stored sessions, expired ones included
func (s *InMemorySnapshotStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemorySnapshotStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemorySnapshotStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Close stops the expiry sweeper
func (s *InMemorySnapshotStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

var _ cart.SnapshotStore = (*InMemorySnapshotStore)(nil)
