// Package checkout drives a payment attempt from the cart to PayPal or
// Mercado Pago and back.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/checkout"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"github.com/gamestore/storefront/internal/infrastructure/payment"
	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Backend is the part of the REST backend checkout depends on
type Backend interface {
	CreatePendingOrder(ctx context.Context, path string) (string, error)
	CreatePreference(ctx context.Context, req backend.PreferenceRequest) (backend.PreferenceResponse, error)
	ProcessOrder(ctx context.Context, method string, details map[string]any) error
}

// PayPalGateway creates and captures PayPal orders
type PayPalGateway interface {
	Currency() string
	CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error)
}

// Readiness reports when the PayPal gateway can be used
type Readiness interface {
	Await(ctx context.Context) error
	Timeout() time.Duration
}

// Cart gives checkout the shopper's snapshot
type Cart interface {
	Refresh(ctx context.Context, sessionID string) cart.Snapshot
	Snapshot(ctx context.Context, sessionID string) cart.Snapshot
}

// CountBroadcaster propagates the cart count after an order empties the cart
type CountBroadcaster interface {
	Broadcast(ctx context.Context, sessionID string, count int)
}

// URLs are the storefront pages providers send the shopper back to
type URLs struct {
	PayPalReturn string
	PayPalCancel string
	Success      string
}

// Orchestrator runs checkout attempts. At most one attempt exists per
// storefront session; it lives in memory and is never persisted.
type Orchestrator struct {
	backend     Backend
	paypal      PayPalGateway
	ready       Readiness
	cart        Cart
	broadcaster CountBroadcaster
	urls        URLs
	claims      shared.IdempotencyStore
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*checkout.Session
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithPayPal enables the PayPal flow
func WithPayPal(gateway PayPalGateway, ready Readiness) Option {
	return func(o *Orchestrator) {
		o.paypal = gateway
		o.ready = ready
	}
}

// WithCaptureClaims makes every PayPal order capture at most once, even
// when its return URL is loaded twice or by two instances
func WithCaptureClaims(store shared.IdempotencyStore) Option {
	return func(o *Orchestrator) {
		o.claims = store
	}
}

// WithMetrics records checkout step outcomes
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator creates a checkout orchestrator
func NewOrchestrator(b Backend, c Cart, broadcaster CountBroadcaster, urls URLs, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:     b,
		cart:        c,
		broadcaster: broadcaster,
		urls:        urls,
		tracer:      otel.Tracer("storefront/checkout"),
		logger:      log,
		now:         time.Now,
		sessions:    make(map[string]*checkout.Session),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin moves from the cart to method selection. An empty cart is refused.
func (o *Orchestrator) Begin(ctx context.Context, sessionID string) (cart.Snapshot, error) {
	snap := o.cart.Refresh(ctx, sessionID)
	if snap.IsEmpty() {
		return snap, checkout.ErrEmptyCart
	}

	o.mu.Lock()
	o.sessions[sessionID] = &checkout.Session{Stage: checkout.StageMethodSelection, StartedAt: o.now()}
	o.mu.Unlock()
	return snap, nil
}

// Session returns a copy of the session's payment attempt
func (o *Orchestrator) Session(sessionID string) (checkout.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return checkout.Session{}, false
	}
	return *s, true
}

// Abandon discards the session's payment attempt (back to the cart)
func (o *Orchestrator) Abandon(sessionID string) {
	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()
}

// enter starts provider's attempt from method selection, or restarts it
// after a failure. A missing attempt is begun implicitly.
func (o *Orchestrator) enter(sessionID string, provider checkout.Provider, stage checkout.Stage) *checkout.Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[sessionID]
	if !ok || s.Stage.Terminal() {
		s = &checkout.Session{Stage: checkout.StageMethodSelection, StartedAt: o.now()}
		o.sessions[sessionID] = s
	}
	if s.Stage != checkout.StageMethodSelection {
		// switching provider, or retrying the same one
		s.Stage = checkout.StageMethodSelection
	}
	_ = s.Advance(stage)
	s.Provider = provider
	s.Order = checkout.PendingOrder{}
	s.OrderID, s.ApproveURL, s.CheckoutURL = "", "", ""
	s.Amount = decimal.Zero
	return s
}

func (o *Orchestrator) update(sessionID string, fn func(s *checkout.Session)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[sessionID]; ok {
		fn(s)
	}
}

// PreparePayPal waits for the gateway and creates the pending order the
// PayPal button will pay. If the backend cannot create it, a synthetic
// temp-<millis> id is used and the flow continues.
func (o *Orchestrator) PreparePayPal(ctx context.Context, sessionID string) (checkout.Session, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.PreparePayPal")
	defer span.End()

	if o.paypal == nil || o.ready == nil {
		return checkout.Session{}, checkout.ErrPayPal.WithMessage("PayPal no está configurado")
	}
	if o.cart.Snapshot(ctx, sessionID).IsEmpty() {
		return checkout.Session{}, checkout.ErrEmptyCart
	}

	if err := o.ready.Await(ctx); err != nil {
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "ready", telemetry.OutcomeFailure)
		span.RecordError(err)
		if errors.Is(err, payment.ErrReadyTimeout) {
			return checkout.Session{}, checkout.SDKTimeout(o.ready.Timeout())
		}
		return checkout.Session{}, checkout.ErrPayPal.WithMessage("Error al cargar PayPal. Verifica tu conexión.")
	}

	order := o.pendingPayPalOrder(ctx)
	span.SetAttributes(attribute.String("checkout.pedido_id", order.ID), attribute.Bool("checkout.synthetic", order.Synthetic))

	o.enter(sessionID, checkout.ProviderPayPal, checkout.StagePayPal)
	o.update(sessionID, func(s *checkout.Session) { s.Order = order })
	o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "prepare", telemetry.OutcomeSuccess)

	s, _ := o.Session(sessionID)
	return s, nil
}

func (o *Orchestrator) pendingPayPalOrder(ctx context.Context) checkout.PendingOrder {
	id, err := o.backend.CreatePendingOrder(ctx, backend.PathOrderPayPal)
	if err != nil {
		order := checkout.SyntheticOrder(o.now())
		logger.L(ctx).Warn("Pending PayPal order not created, continuing with temporary id",
			zap.String("pedido_id", order.ID),
			zap.Error(err))
		return order
	}
	return checkout.PendingOrder{ID: id}
}

// CreatePayPalOrder creates the PayPal order for the cart total and returns
// the session holding its approval link.
func (o *Orchestrator) CreatePayPalOrder(ctx context.Context, sessionID string) (checkout.Session, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.CreatePayPalOrder")
	defer span.End()

	s, ok := o.Session(sessionID)
	if !ok || s.Provider != checkout.ProviderPayPal || s.Stage != checkout.StagePayPal || s.Order.ID == "" {
		var err error
		if s, err = o.PreparePayPal(ctx, sessionID); err != nil {
			return checkout.Session{}, err
		}
	}

	snap := o.cart.Snapshot(ctx, sessionID)
	if snap.IsEmpty() {
		return checkout.Session{}, checkout.ErrEmptyCart
	}

	order, err := o.paypal.CreateOrder(ctx, payment.CreateOrderRequest{
		ReferenceID: s.Order.ID,
		Amount:      snap.Total,
		Description: fmt.Sprintf("Pedido GameStore - %d productos", snap.Count),
		ReturnURL:   o.urls.PayPalReturn,
		CancelURL:   o.urls.PayPalCancel,
	})
	if err != nil {
		span.RecordError(err)
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "create_order", telemetry.OutcomeFailure)
		o.fail(sessionID)
		logger.L(ctx).Error("PayPal order creation failed", zap.String("pedido_id", s.Order.ID), zap.Error(err))
		return checkout.Session{}, checkout.ErrPayPal.WithMessage("Error al crear botones de PayPal: " + err.Error())
	}
	if order.ApproveURL == "" {
		o.fail(sessionID)
		return checkout.Session{}, checkout.ErrPayPal.WithMessage("PayPal no devolvió un enlace de aprobación")
	}

	o.update(sessionID, func(s *checkout.Session) {
		s.OrderID = order.ID
		s.Amount = snap.Total
		s.ApproveURL = order.ApproveURL
	})
	o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "create_order", telemetry.OutcomeSuccess)

	s, _ = o.Session(sessionID)
	return s, nil
}

// ApprovePayPal captures the order created for this session, settles the
// pending order with the backend and returns the success page URL. Only the
// session's own PayPal order is captured, and only for the amount it was
// created for.
func (o *Orchestrator) ApprovePayPal(ctx context.Context, sessionID, orderID string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.ApprovePayPal", trace.WithAttributes(attribute.String("paypal.order_id", orderID)))
	defer span.End()

	s, ok := o.Session(sessionID)
	if !ok || s.Provider != checkout.ProviderPayPal || s.Stage != checkout.StagePayPal {
		return "", checkout.ErrNoSession
	}
	if orderID == "" {
		orderID = s.OrderID
	}
	if o.paypal == nil || s.OrderID == "" || orderID != s.OrderID {
		return "", checkout.ErrNoSession
	}

	claimKey := captureClaimPrefix + orderID
	if !o.claim(ctx, claimKey) {
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "capture", telemetry.OutcomeBusy)
		return "", checkout.ErrCaptureInProgress
	}

	capture, err := o.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "capture", telemetry.OutcomeFailure)
		o.release(ctx, claimKey)
		o.fail(sessionID)
		return "", checkout.ErrPayPal.WithMessage("Error al procesar el pago: " + err.Error())
	}
	if capture.Status != payment.PayPalStatusCompleted {
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "capture", telemetry.OutcomeFailure)
		o.release(ctx, claimKey)
		o.fail(sessionID)
		return "", checkout.ErrCaptureIncomplete.WithMessage(
			fmt.Sprintf("El pago no pudo completarse (estado %s)", capture.Status))
	}
	if paid, err := decimal.NewFromString(capture.Amount); err != nil || !paid.Equal(s.Amount) {
		// The claim stays held: money was taken and needs manual review.
		o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "capture", telemetry.OutcomeFailure)
		logger.L(ctx).Error("Captured PayPal amount does not match the order",
			zap.String("paypal_order_id", orderID),
			zap.String("capture_id", capture.CaptureID),
			zap.String("captured", capture.Amount),
			zap.String("expected", s.Amount.StringFixed(2)),
			zap.String("pedido_id", s.Order.ID))
		o.fail(sessionID)
		return "", checkout.ErrAmountMismatch
	}
	o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "capture", telemetry.OutcomeSuccess)

	details := map[string]any{
		"id":         capture.OrderID,
		"capture_id": capture.CaptureID,
		"payer_id":   capture.PayerID,
		"status":     capture.Status,
		"amount":     capture.Amount,
		"pedido_id":  s.Order.ID,
	}
	// The money is taken at this point; a settlement failure must not hide it.
	if err := o.backend.ProcessOrder(ctx, string(checkout.ProviderPayPal), details); err != nil {
		logger.L(ctx).Error("Captured PayPal payment could not be settled with the backend",
			zap.String("paypal_order_id", orderID),
			zap.String("capture_id", capture.CaptureID),
			zap.String("pedido_id", s.Order.ID),
			zap.Error(err))
	} else {
		snap := o.cart.Refresh(ctx, sessionID)
		o.broadcaster.Broadcast(ctx, sessionID, snap.Count)
	}

	o.finish(sessionID, checkout.StageSuccess)

	q := url.Values{}
	q.Set("pedido_id", s.Order.ID)
	q.Set("paypal_order_id", orderID)
	return o.urls.Success + "?" + q.Encode(), nil
}

// captureClaimTTL outlives any shopper retry of the same order
const (
	captureClaimPrefix = "paypal:capture:"
	captureClaimTTL    = 24 * time.Hour
)

// claim takes the capture claim of an order. Without a claim store, or
// when the store fails, the capture goes ahead: PayPal itself refuses a
// second capture of the same order.
func (o *Orchestrator) claim(ctx context.Context, key string) bool {
	if o.claims == nil {
		return true
	}
	ok, err := o.claims.Claim(ctx, key, captureClaimTTL)
	if err != nil {
		logger.L(ctx).Warn("Capture claim unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (o *Orchestrator) release(ctx context.Context, key string) {
	if o.claims == nil {
		return
	}
	if err := o.claims.Release(ctx, key); err != nil {
		logger.L(ctx).Warn("Failed to release capture claim", zap.String("key", key), zap.Error(err))
	}
}

// CancelPayPal ends the attempt after the shopper cancelled at PayPal and
// returns the warning to show on the cart.
func (o *Orchestrator) CancelPayPal(ctx context.Context, sessionID string) string {
	o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "cancel", telemetry.OutcomeSuccess)
	o.finish(sessionID, checkout.StageCancelled)
	logger.L(ctx).Info("PayPal payment cancelled by shopper")
	return checkout.Cancelled
}

// FailPayPal ends the attempt after PayPal reported an error and returns the
// error to show. Nothing is kept; a retry starts a new attempt.
func (o *Orchestrator) FailPayPal(ctx context.Context, sessionID, reason string) error {
	o.metrics.CheckoutStep(string(checkout.ProviderPayPal), "error", telemetry.OutcomeFailure)
	o.finish(sessionID, checkout.StageFailed)
	logger.L(ctx).Warn("PayPal reported an error", zap.String("reason", reason))

	msg := checkout.ErrPayPal.Message
	if reason != "" {
		msg += ": " + reason
	}
	return checkout.ErrPayPal.WithMessage(msg)
}

// StartMercadoPago creates the pending order and the checkout preference.
// If the pending order fails, the preference is never requested.
func (o *Orchestrator) StartMercadoPago(ctx context.Context, sessionID string) (checkout.Session, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.StartMercadoPago")
	defer span.End()

	snap := o.cart.Snapshot(ctx, sessionID)
	if snap.IsEmpty() {
		return checkout.Session{}, checkout.ErrEmptyCart
	}
	o.enter(sessionID, checkout.ProviderMercadoPago, checkout.StageMercadoPago)

	pedidoID, err := o.backend.CreatePendingOrder(ctx, backend.PathOrderMercadoPago)
	if err != nil {
		span.RecordError(err)
		o.metrics.CheckoutStep(string(checkout.ProviderMercadoPago), "pending_order", telemetry.OutcomeFailure)
		o.fail(sessionID)
		return checkout.Session{}, pendingOrderError(err)
	}
	o.update(sessionID, func(s *checkout.Session) { s.Order = checkout.PendingOrder{ID: pedidoID} })

	items := make([]backend.PreferenceItem, 0, len(snap.Items))
	for _, l := range snap.Items {
		price, _ := l.PrecioUnitario.Float64()
		items = append(items, backend.PreferenceItem{Title: l.Nombre, Quantity: l.Cantidad, UnitPrice: price})
	}

	pref, err := o.backend.CreatePreference(ctx, backend.PreferenceRequest{Items: items, PedidoID: pedidoID})
	if err != nil {
		span.RecordError(err)
		o.metrics.CheckoutStep(string(checkout.ProviderMercadoPago), "preference", telemetry.OutcomeFailure)
		o.fail(sessionID)
		return checkout.Session{}, checkout.ErrPendingOrder.WithMessage("Error creando preference: " + backend.Message(err))
	}

	checkoutURL := pref.CheckoutURL()
	if checkoutURL == "" {
		o.metrics.CheckoutStep(string(checkout.ProviderMercadoPago), "preference", telemetry.OutcomeFailure)
		o.fail(sessionID)
		return checkout.Session{}, checkout.ErrNoCheckoutURL
	}

	o.update(sessionID, func(s *checkout.Session) { s.CheckoutURL = checkoutURL })
	o.metrics.CheckoutStep(string(checkout.ProviderMercadoPago), "preference", telemetry.OutcomeSuccess)

	s, _ := o.Session(sessionID)
	return s, nil
}

// pendingOrderError keeps the backend's explanation of a refused pending order
func pendingOrderError(err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 200 && apiErr.Status < 300 {
			return checkout.ErrPendingOrder.WithMessage(apiErr.Message)
		}
		return checkout.ErrPendingOrder.WithMessage(checkout.ErrPendingOrder.Message + ": " + apiErr.Message)
	}
	return checkout.ErrPendingOrder.WithMessage(checkout.ErrPendingOrder.Message + ": Error de conexión")
}

func (o *Orchestrator) fail(sessionID string) {
	o.update(sessionID, func(s *checkout.Session) {
		if s.Stage.CanTransition(checkout.StageFailed) {
			s.Stage = checkout.StageFailed
		}
	})
}

// finish ends the attempt; the session record is discarded
func (o *Orchestrator) finish(sessionID string, stage checkout.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[sessionID]; ok {
		if err := s.Advance(stage); err != nil {
			o.logger.Debug("Checkout finished from unexpected stage", zap.Error(err))
		}
	}
	delete(o.sessions, sessionID)
}
