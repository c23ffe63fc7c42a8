package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gamestore/storefront/internal/domain/badge"
)

// InMemoryCountSignal delivers count updates inside a single process.
type InMemoryCountSignal struct {
	mu          sync.RWMutex
	subscribers map[string]func(badge.CountUpdate)
	sentinels   map[string]sentinel
	writes      uint64
	sentinelTTL time.Duration
}

// sentinel is one write of a session's count; write tells rewrites apart
type sentinel struct {
	count int
	write uint64
}

// NewInMemoryCountSignal creates an in-process signal
func NewInMemoryCountSignal(sentinelTTL time.Duration) *InMemoryCountSignal {
	if sentinelTTL <= 0 {
		sentinelTTL = defaultSentinelTTL
	}
	return &InMemoryCountSignal{
		subscribers: make(map[string]func(badge.CountUpdate)),
		sentinels:   make(map[string]sentinel),
		sentinelTTL: sentinelTTL,
	}
}

// Publish records the sentinel for sentinelTTL and calls every subscriber
func (s *InMemoryCountSignal) Publish(_ context.Context, update badge.CountUpdate) error {
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}

	s.mu.Lock()
	s.writes++
	write := s.writes
	s.sentinels[update.SessionID] = sentinel{count: update.Count, write: write}
	callbacks := make([]func(badge.CountUpdate), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	// a newer publish for the session owns the sentinel and its own expiry
	time.AfterFunc(s.sentinelTTL, func() {
		s.mu.Lock()
		if s.sentinels[update.SessionID].write == write {
			delete(s.sentinels, update.SessionID)
		}
		s.mu.Unlock()
	})

	for _, cb := range callbacks {
		cb(update)
	}
	return nil
}

// Sentinel returns the count held by a session's sentinel while it lives
func (s *InMemoryCountSignal) Sentinel(sessionID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sen, ok := s.sentinels[sessionID]
	return sen.count, ok
}

// Subscribe registers callback until ctx is cancelled
func (s *InMemoryCountSignal) Subscribe(ctx context.Context, callback func(badge.CountUpdate)) error {
	id := uuid.NewString()

	s.mu.Lock()
	s.subscribers[id] = callback
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
	return ctx.Err()
}

// Close is a no-op; subscriptions end with their context
func (s *InMemoryCountSignal) Close() error {
	return nil
}

var _ badge.CountSignal = (*InMemoryCountSignal)(nil)
