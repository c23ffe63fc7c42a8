package dto

import (
	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/domain/cart"
)

// CartResponse is returned by every cart mutation so a client can redraw
// the cart and the badge from the same snapshot
type CartResponse struct {
	Cart  cart.Snapshot `json:"cart"`
	Badge badge.State   `json:"badge"`
}

// NewCartResponse builds the response for a snapshot
func NewCartResponse(s cart.Snapshot) CartResponse {
	return CartResponse{Cart: s, Badge: badge.StateFor(s.Count)}
}

// QuantityRequest changes a line's quantity. Either Op or Cantidad is set.
type QuantityRequest struct {
	Op       string `form:"op" json:"op"`
	Cantidad int    `form:"cantidad" json:"cantidad"`
}

// RemoveRequest removes a line once Confirm is true
type RemoveRequest struct {
	Confirm bool `form:"confirm" json:"confirm"`
}

// AddToCartRequest adds a product to the cart
type AddToCartRequest struct {
	ProductoID int64 `form:"producto_id" json:"producto_id" binding:"required,min=1"`
	Cantidad   int   `form:"cantidad" json:"cantidad"`
}

// PayPalOrderResponse is returned once a PayPal order was created
type PayPalOrderResponse struct {
	OrderID    string `json:"order_id"`
	ApproveURL string `json:"approve_url"`
	PedidoID   string `json:"pedido_id"`
	Synthetic  bool   `json:"synthetic,omitempty"`
}

// PayPalErrorRequest reports a failure raised by the PayPal buttons
type PayPalErrorRequest struct {
	Reason string `form:"reason" json:"reason"`
}

// RedirectResponse tells a client where to navigate next
type RedirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// CaptureRequest captures a PayPal order the shopper approved
type CaptureRequest struct {
	OrderID string `form:"order_id" json:"order_id" binding:"required"`
}

// PaymentMethod is the state of one payment method of the payment view
type PaymentMethod struct {
	ActionURL string `json:"action_url,omitempty"`
	PedidoID  string `json:"pedido_id,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PaymentResponse is the payment view for JSON clients
type PaymentResponse struct {
	Cart        cart.Snapshot `json:"cart"`
	PayPal      PaymentMethod `json:"paypal"`
	MercadoPago PaymentMethod `json:"mercadopago"`
}
