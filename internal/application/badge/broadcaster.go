// Package badge keeps every cart badge of a session showing the same count.
//
// A badge is a Widget: one per open page (SSE stream) on this instance.
// Broadcast updates the local widgets first and then signals the other
// instances, whose Run loop applies the carried count to their own widgets.
// Delivery is best-effort; a widget that missed an update catches up on its
// next Sync.
package badge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTooManyWidgets is returned by Register when the instance is at capacity
var ErrTooManyWidgets = errors.New("badge: too many open widgets")

// CountSource returns the authoritative count of a session
type CountSource interface {
	Count(ctx context.Context, sessionID string) (int, error)
}

// CountSourceFunc adapts a function to CountSource
type CountSourceFunc func(ctx context.Context, sessionID string) (int, error)

// Count calls f
func (f CountSourceFunc) Count(ctx context.Context, sessionID string) (int, error) {
	return f(ctx, sessionID)
}

// Widget is one badge location receiving state updates.
// Only the latest state matters, so a slow reader skips intermediate ones.
type Widget struct {
	ID        string
	SessionID string
	updates   chan badge.State
}

// Updates returns the channel the widget's states are delivered on
func (w *Widget) Updates() <-chan badge.State {
	return w.updates
}

func (w *Widget) deliver(s badge.State) {
	select {
	case w.updates <- s:
		return
	default:
	}
	// drop the stale state, keep the newest
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- s:
	default:
	}
}

// Broadcaster fans count changes out to widgets and instances
type Broadcaster struct {
	signal     badge.CountSignal
	source     CountSource
	origin     string
	maxWidgets int
	metrics    *telemetry.Metrics
	logger     *zap.Logger

	mu      sync.RWMutex
	widgets map[string]map[string]*Widget // session -> widget id -> widget
	counts  map[string]int                // last applied count per session
	total   int
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithMaxWidgets caps the number of widgets registered on this instance
func WithMaxWidgets(n int) Option {
	return func(b *Broadcaster) {
		b.maxWidgets = n
	}
}

// WithMetrics records broadcasts and open widgets
func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Broadcaster) {
		b.metrics = m
	}
}

// NewBroadcaster creates a broadcaster publishing through signal.
func NewBroadcaster(signal badge.CountSignal, source CountSource, logger *zap.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		signal:     signal,
		source:     source,
		origin:     uuid.NewString(),
		maxWidgets: 1000,
		logger:     logger,
		widgets:    make(map[string]map[string]*Widget),
		counts:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Origin identifies this instance in published updates
func (b *Broadcaster) Origin() string {
	return b.origin
}

// Register adds a widget for a session
func (b *Broadcaster) Register(sessionID string) (*Widget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxWidgets > 0 && b.total >= b.maxWidgets {
		return nil, ErrTooManyWidgets
	}

	w := &Widget{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		updates:   make(chan badge.State, 1),
	}
	if b.widgets[sessionID] == nil {
		b.widgets[sessionID] = make(map[string]*Widget)
	}
	b.widgets[sessionID][w.ID] = w
	b.total++
	b.metrics.StreamOpened()
	return w, nil
}

// Unregister removes a widget. The session's last count is forgotten with its last widget.
func (b *Broadcaster) Unregister(w *Widget) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ws, ok := b.widgets[w.SessionID]
	if !ok {
		return
	}
	if _, ok := ws[w.ID]; !ok {
		return
	}
	delete(ws, w.ID)
	b.total--
	b.metrics.StreamClosed()
	if len(ws) == 0 {
		delete(b.widgets, w.SessionID)
		delete(b.counts, w.SessionID)
	}
}

// WidgetCount returns the number of widgets registered on this instance
func (b *Broadcaster) WidgetCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// Apply shows count on every local widget of the session and returns the state applied
func (b *Broadcaster) Apply(sessionID string, count int) badge.State {
	state := badge.StateFor(count)

	b.mu.Lock()
	ws := b.widgets[sessionID]
	if len(ws) > 0 {
		b.counts[sessionID] = state.Count
	}
	targets := make([]*Widget, 0, len(ws))
	for _, w := range ws {
		targets = append(targets, w)
	}
	b.mu.Unlock()

	for _, w := range targets {
		w.deliver(state)
	}
	return state
}

// Broadcast applies count locally and signals every other instance.
// Signal failures are logged and swallowed.
func (b *Broadcaster) Broadcast(ctx context.Context, sessionID string, count int) {
	b.Apply(sessionID, count)
	b.metrics.BadgeBroadcast("local")

	update := badge.CountUpdate{
		SessionID: sessionID,
		Count:     count,
		Origin:    b.origin,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := b.signal.Publish(ctx, update); err != nil {
		b.logger.Warn("Failed to publish badge count",
			zap.String("session_id", sessionID),
			zap.Int("count", count),
			zap.Error(err))
	}
}

// Sync fetches the authoritative count and applies it
func (b *Broadcaster) Sync(ctx context.Context, sessionID string) (badge.State, error) {
	count, err := b.source.Count(ctx, sessionID)
	if err != nil {
		b.logger.Debug("Badge sync failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return b.Current(sessionID), err
	}
	return b.Apply(sessionID, count), nil
}

// Reapply re-sends the last known state of a session without fetching
func (b *Broadcaster) Reapply(sessionID string) badge.State {
	return b.Apply(sessionID, b.Current(sessionID).Count)
}

// Current returns the last state applied to the session's widgets
func (b *Broadcaster) Current(sessionID string) badge.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return badge.StateFor(b.counts[sessionID])
}

// Run applies updates published by other instances until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.logger.Info("Badge broadcaster listening", zap.String("origin", b.origin))
	return b.signal.Subscribe(ctx, func(update badge.CountUpdate) {
		if update.Origin == b.origin {
			return
		}
		b.metrics.BadgeBroadcast("remote")
		b.Apply(update.SessionID, update.Count)
	})
}
