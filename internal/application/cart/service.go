// Package cart holds the authoritative cart snapshot of every storefront
// session and performs the shopper's cart mutations against the backend.
package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Success notices
const (
	NoticeRemoved = "Producto eliminado del carrito"
	NoticeAdded   = "Producto agregado al carrito"
)

// Backend is the part of the REST backend the cart depends on.
type Backend interface {
	CartDetails(ctx context.Context) (cart.Snapshot, error)
	CartCount(ctx context.Context) (int, error)
	AddToCart(ctx context.Context, productID int64, qty int) (backend.AddResult, error)
	UpdateQuantity(ctx context.Context, lineID int64, qty int) error
	RemoveLine(ctx context.Context, lineID int64) error
}

// CountBroadcaster propagates a new cart count to every badge of a session.
type CountBroadcaster interface {
	Broadcast(ctx context.Context, sessionID string, count int)
}

// Result is the outcome of a successful mutation.
type Result struct {
	Snapshot cart.Snapshot
	Message  string
}

// Service is the cart state holder and mutation client.
type Service struct {
	backend     Backend
	store       cart.SnapshotStore
	broadcaster CountBroadcaster
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	logger      *zap.Logger

	inflight sync.Map // session|control -> struct{}
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records mutation outcomes
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a cart service
func NewService(b Backend, store cart.SnapshotStore, broadcaster CountBroadcaster, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		backend:     b,
		store:       store,
		broadcaster: broadcaster,
		tracer:      otel.Tracer("storefront/cart"),
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the cart from the backend and stores it as the session's
// snapshot. Any failure stores and returns the empty cart; it never errors.
func (s *Service) Refresh(ctx context.Context, sessionID string) cart.Snapshot {
	ctx, span := s.tracer.Start(ctx, "cart.Refresh")
	defer span.End()

	snap, err := s.backend.CartDetails(ctx)
	if err == nil {
		snap = snap.Normalize()
		err = snap.Validate()
	}
	if err != nil {
		logger.L(ctx).Warn("Cart could not be loaded, showing empty cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
		span.RecordError(err)
		snap = cart.Empty()
	}

	if err := s.store.Set(ctx, sessionID, snap); err != nil {
		s.logger.Error("Failed to store cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	span.SetAttributes(attribute.Int("cart.count", snap.Count))
	return snap
}

// Snapshot returns the stored snapshot of a session, or the empty cart.
func (s *Service) Snapshot(ctx context.Context, sessionID string) cart.Snapshot {
	snap, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Failed to read cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return cart.Empty()
	}
	if !ok {
		return cart.Empty()
	}
	return snap
}

// Count returns the session's badge count in units. The lightweight count
// endpoint reports distinct lines; while it agrees with the stored snapshot
// the stored count is used, otherwise the snapshot is refreshed.
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	lines, err := s.backend.CartCount(ctx)
	if err != nil {
		return 0, mutationError(err)
	}
	if snap, ok, err := s.store.Get(ctx, sessionID); err == nil && ok && len(snap.Items) == lines {
		return snap.Count, nil
	}
	return s.Refresh(ctx, sessionID).Count, nil
}

// SetQuantity asks the backend to set a line's quantity. Stock bounds are
// the backend's to enforce.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, lineID int64, qty int) (Result, error) {
	control := "qty:" + strconv.FormatInt(lineID, 10)
	return s.mutate(ctx, sessionID, control, "set_quantity", func(ctx context.Context) (string, error) {
		return "", s.backend.UpdateQuantity(ctx, lineID, qty)
	})
}

// Step moves a line's quantity by delta from the stored snapshot.
func (s *Service) Step(ctx context.Context, sessionID string, lineID int64, delta int) (Result, error) {
	line, ok := s.Snapshot(ctx, sessionID).Line(lineID)
	if !ok {
		return Result{}, shared.ErrNotFound.WithMessage("El producto ya no está en el carrito")
	}
	return s.SetQuantity(ctx, sessionID, lineID, line.Cantidad+delta)
}

// RemoveLine deletes a line once the shopper confirmed it. Without
// confirmation nothing is sent and ErrConfirmationRequired is returned.
func (s *Service) RemoveLine(ctx context.Context, sessionID string, lineID int64, confirmed bool) (Result, error) {
	if !confirmed {
		return Result{}, shared.ErrConfirmationRequired
	}
	control := "remove:" + strconv.FormatInt(lineID, 10)
	return s.mutate(ctx, sessionID, control, "remove_line", func(ctx context.Context) (string, error) {
		if err := s.backend.RemoveLine(ctx, lineID); err != nil {
			return "", err
		}
		return NoticeRemoved, nil
	})
}

// AddProduct adds one unit of a product.
func (s *Service) AddProduct(ctx context.Context, sessionID string, productID int64) (Result, error) {
	control := "add:" + strconv.FormatInt(productID, 10)
	return s.mutate(ctx, sessionID, control, "add_product", func(ctx context.Context) (string, error) {
		res, err := s.backend.AddToCart(ctx, productID, 1)
		if err != nil {
			return "", err
		}
		if res.Message == "" {
			return NoticeAdded, nil
		}
		return res.Message, nil
	})
}

// mutate sends one backend request for a control. A second request for the
// same control of the same session fails with ErrBusy until the first ends.
// Different controls are not serialized.
func (s *Service) mutate(ctx context.Context, sessionID, control, operation string, send func(context.Context) (string, error)) (Result, error) {
	key := sessionID + "|" + control
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		s.metrics.CartMutation(operation, telemetry.OutcomeBusy)
		return Result{}, shared.ErrBusy
	}
	defer s.inflight.Delete(key)

	ctx, span := s.tracer.Start(ctx, "cart."+operation, trace.WithAttributes(attribute.String("cart.control", control)))
	defer span.End()

	msg, err := send(ctx)
	if err != nil {
		span.RecordError(err)
		s.metrics.CartMutation(operation, telemetry.OutcomeFailure)
		logger.L(ctx).Info("Cart mutation rejected",
			zap.String("operation", operation),
			zap.String("control", control),
			zap.Error(err))
		return Result{}, mutationError(err)
	}

	snap := s.Refresh(ctx, sessionID)
	s.broadcaster.Broadcast(ctx, sessionID, snap.Count)
	s.metrics.CartMutation(operation, telemetry.OutcomeSuccess)

	return Result{Snapshot: snap, Message: msg}, nil
}

// mutationError keeps the backend's text verbatim; anything that is not a
// backend answer is reported as a connection error.
func mutationError(err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return shared.ErrRejected.WithMessage(backend.Message(err))
	}
	return shared.ErrConnection
}
