// Package checkout models a single payment attempt made from the cart.
package checkout

import (
	"fmt"
	"time"

	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Provider identifies an external payment provider
type Provider string

const (
	ProviderPayPal      Provider = "paypal"
	ProviderMercadoPago Provider = "mercadopago"
)

// Stage is the position of a payment attempt in the checkout progression.
// Cart -> MethodSelection -> {PayPal | MercadoPago} -> {Success | Cancelled | Failed}
type Stage string

const (
	StageCart            Stage = "cart"
	StageMethodSelection Stage = "method_selection"
	StagePayPal          Stage = "paypal"
	StageMercadoPago     Stage = "mercadopago"
	StageSuccess         Stage = "success"
	StageCancelled       Stage = "cancelled"
	StageFailed          Stage = "failed"
)

var transitions = map[Stage][]Stage{
	StageCart:            {StageMethodSelection},
	StageMethodSelection: {StagePayPal, StageMercadoPago, StageCart},
	StagePayPal:          {StageSuccess, StageCancelled, StageFailed},
	StageMercadoPago:     {StageSuccess, StageCancelled, StageFailed},
	StageFailed:          {StageMethodSelection, StageCart},
	StageCancelled:       {StageCart},
}

// CanTransition reports whether next may follow s.
func (s Stage) CanTransition(next Stage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the attempt is over.
func (s Stage) Terminal() bool {
	return s == StageSuccess || s == StageCancelled
}

const syntheticPrefix = "temp-"

// PendingOrder is the backend order record created before payment begins
type PendingOrder struct {
	ID        string
	Synthetic bool
}

// SyntheticOrder returns a local stand-in used when the backend could not
// create a PayPal pending order.
func SyntheticOrder(now time.Time) PendingOrder {
	return PendingOrder{
		ID:        fmt.Sprintf("%s%d", syntheticPrefix, now.UnixMilli()),
		Synthetic: true,
	}
}

// SDKTimeout is ErrSDKTimeout naming the readiness budget that ran out
func SDKTimeout(budget time.Duration) *shared.DomainError {
	return ErrSDKTimeout.WithMessage(
		fmt.Sprintf("Timeout: PayPal SDK no se cargó después de %g segundos", budget.Seconds()))
}

// Session is the transient state of one payment attempt. It lives only
// in storefront memory and is discarded when the shopper returns to the cart.
type Session struct {
	Provider    Provider
	Stage       Stage
	Order       PendingOrder
	OrderID     string          // PayPal order id
	Amount      decimal.Decimal // amount the PayPal order was created for
	ApproveURL  string          // PayPal approval link
	CheckoutURL string          // Mercado Pago init point
	StartedAt   time.Time
}

// Advance moves the session to next, rejecting transitions the flow does not allow.
func (s *Session) Advance(next Stage) error {
	if !s.Stage.CanTransition(next) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("checkout cannot move from %s to %s", s.Stage, next))
	}
	s.Stage = next
	return nil
}

// Checkout errors shown to the shopper
var (
	ErrEmptyCart         = shared.NewDomainError("EMPTY_CART", "Tu carrito está vacío")
	ErrSDKTimeout        = shared.NewDomainError("SDK_TIMEOUT", "Timeout: PayPal SDK no se cargó a tiempo")
	ErrPayPal            = shared.NewDomainError("PAYPAL_ERROR", "Error en el proceso de PayPal")
	ErrPendingOrder      = shared.NewDomainError("PENDING_ORDER_FAILED", "Error creando pedido en el servidor")
	ErrNoCheckoutURL     = shared.NewDomainError("NO_CHECKOUT_URL", "No se pudo obtener la URL de checkout de Mercado Pago")
	ErrNoSession         = shared.NewDomainError("NO_PAYMENT_SESSION", "No hay un pago en curso")
	ErrCaptureIncomplete = shared.NewDomainError("CAPTURE_INCOMPLETE", "El pago no pudo completarse")
	ErrCaptureInProgress = shared.ErrBusy.WithMessage("El pago ya se está procesando")
	ErrAmountMismatch    = shared.NewDomainError("AMOUNT_MISMATCH", "El monto cobrado no coincide con el pedido")
)

// Cancelled is the notice shown after the shopper cancels at the provider
const Cancelled = "Pago cancelado. Puedes intentarlo nuevamente cuando lo desees."
