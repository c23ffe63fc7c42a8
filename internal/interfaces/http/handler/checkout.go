package handler

import (
	"errors"
	"net/http"

	badgeapp "github.com/gamestore/storefront/internal/application/badge"
	cartapp "github.com/gamestore/storefront/internal/application/cart"
	checkoutapp "github.com/gamestore/storefront/internal/application/checkout"
	"github.com/gamestore/storefront/internal/domain/checkout"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Checkout routes
const (
	PaymentPath     = "/carrito/pago"
	PayPalPath      = "/checkout/paypal"
	MercadoPagoPath = "/checkout/mercadopago"
)

// CheckoutHandler drives the payment view and the provider redirects
type CheckoutHandler struct {
	BaseHandler
	pages       *Pages
	cart        *cartapp.Service
	checkout    *checkoutapp.Orchestrator
	broadcaster *badgeapp.Broadcaster
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(pages *Pages, cart *cartapp.Service, checkout *checkoutapp.Orchestrator, broadcaster *badgeapp.Broadcaster) *CheckoutHandler {
	return &CheckoutHandler{
		pages:       pages,
		cart:        cart,
		checkout:    checkout,
		broadcaster: broadcaster,
	}
}

// Payment shows the payment view. The PayPal panel is prepared right away;
// Mercado Pago starts when its button is pressed.
// @Summary     Show the payment view
// @Description Prepares the PayPal panel and lists the payment methods for the current cart.
// @Tags        checkout
// @Produce     json,html
// @Success     200 {object} dto.Response{data=dto.PaymentResponse}
// @Failure     429 {object} dto.Response
// @Router      /carrito/pago [get]
func (h *CheckoutHandler) Payment(c *gin.Context) {
	ctx := c.Request.Context()
	sid := middleware.GetSessionID(c)

	snap, err := h.checkout.Begin(ctx, sid)
	if err != nil {
		h.backToCart(c, err)
		return
	}

	payment := view.PaymentView{
		MercadoPago: view.PanelState{ActionURL: MercadoPagoPath},
	}
	s, err := h.checkout.PreparePayPal(ctx, sid)
	if err != nil {
		payment.PayPal = view.PanelState{Error: err.Error(), RetryURL: PaymentPath}
	} else {
		payment.PayPal = view.PanelState{ActionURL: PayPalPath, PedidoID: s.Order.ID, Synthetic: s.Order.Synthetic}
	}

	if middleware.WantsJSON(c) {
		h.Success(c, dto.PaymentResponse{
			Cart:        snap,
			PayPal:      paymentMethod(payment.PayPal),
			MercadoPago: paymentMethod(payment.MercadoPago),
		})
		return
	}
	h.pages.Render(c, http.StatusOK, view.PageCart, view.CartPage{
		Layout:   h.pages.LayoutWithCount(c, "Finalizar compra", snap.Count),
		Snapshot: snap,
		Payment:  &payment,
	})
}

// PayPal creates the PayPal order and sends the shopper to approve it
// @Summary     Create the PayPal order
// @Tags        checkout
// @Produce     json
// @Success     200 {object} dto.Response{data=dto.PayPalOrderResponse}
// @Failure     400 {object} dto.Response
// @Failure     429 {object} dto.Response
// @Failure     502 {object} dto.Response
// @Failure     504 {object} dto.Response
// @Router      /checkout/paypal [post]
func (h *CheckoutHandler) PayPal(c *gin.Context) {
	s, err := h.checkout.CreatePayPalOrder(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.paymentFailed(c, checkout.ProviderPayPal, err)
		return
	}
	if middleware.WantsJSON(c) {
		h.Success(c, dto.PayPalOrderResponse{
			OrderID:    s.OrderID,
			ApproveURL: s.ApproveURL,
			PedidoID:   s.Order.ID,
			Synthetic:  s.Order.Synthetic,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, s.ApproveURL)
}

// PayPalReturn captures the order PayPal sends the shopper back with
func (h *CheckoutHandler) PayPalReturn(c *gin.Context) {
	next, err := h.checkout.ApprovePayPal(c.Request.Context(), middleware.GetSessionID(c), c.Query("token"))
	if err != nil {
		h.paymentFailed(c, checkout.ProviderPayPal, err)
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// PayPalCapture captures an approved order for JSON clients
// @Summary     Capture an approved PayPal order
// @Tags        checkout
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       request body dto.CaptureRequest true "PayPal order to capture"
// @Success     200 {object} dto.Response{data=dto.RedirectResponse}
// @Failure     402 {object} dto.Response
// @Failure     409 {object} dto.Response
// @Failure     429 {object} dto.Response
// @Failure     502 {object} dto.Response
// @Router      /checkout/paypal/capture [post]
func (h *CheckoutHandler) PayPalCapture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, "order_id requerido")
		return
	}
	next, err := h.checkout.ApprovePayPal(c.Request.Context(), middleware.GetSessionID(c), req.OrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.RedirectResponse{RedirectURL: next})
}

// PayPalCancel returns the shopper to the cart after cancelling at PayPal
func (h *CheckoutHandler) PayPalCancel(c *gin.Context) {
	notice := h.checkout.CancelPayPal(c.Request.Context(), middleware.GetSessionID(c))
	if middleware.WantsJSON(c) {
		h.Message(c, dto.RedirectResponse{RedirectURL: CartPath}, notice)
		return
	}
	h.pages.Redirect(c, CartPath, warning(notice))
}

// PayPalError records a failure raised on the PayPal side and returns the
// shopper to the cart
func (h *CheckoutHandler) PayPalError(c *gin.Context) {
	var req dto.PayPalErrorRequest
	_ = c.ShouldBind(&req)

	err := h.checkout.FailPayPal(c.Request.Context(), middleware.GetSessionID(c), req.Reason)
	if middleware.WantsJSON(c) {
		h.HandleError(c, err)
		return
	}
	h.pages.Redirect(c, CartPath, failure(err))
}

// MercadoPago creates the checkout preference and sends the shopper to it
// @Summary     Create the Mercado Pago preference
// @Tags        checkout
// @Produce     json
// @Success     200 {object} dto.Response{data=dto.RedirectResponse}
// @Failure     400 {object} dto.Response
// @Failure     429 {object} dto.Response
// @Failure     502 {object} dto.Response
// @Router      /checkout/mercadopago [post]
func (h *CheckoutHandler) MercadoPago(c *gin.Context) {
	s, err := h.checkout.StartMercadoPago(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.paymentFailed(c, checkout.ProviderMercadoPago, err)
		return
	}
	if middleware.WantsJSON(c) {
		h.Success(c, dto.RedirectResponse{RedirectURL: s.CheckoutURL})
		return
	}
	c.Redirect(http.StatusSeeOther, s.CheckoutURL)
}

// Succeeded shows the confirmation page. Providers send the shopper here
// once the payment went through; the cart is reloaded because the backend
// empties it when the order is settled.
func (h *CheckoutHandler) Succeeded(c *gin.Context) {
	ctx := c.Request.Context()
	sid := middleware.GetSessionID(c)
	h.checkout.Abandon(sid)

	snap := h.cart.Refresh(ctx, sid)
	h.broadcaster.Broadcast(ctx, sid, snap.Count)

	pedidoID := c.Query("pedido_id")
	if pedidoID == "" {
		pedidoID = c.Query("external_reference")
	}
	orderID := c.Query("paypal_order_id")
	if orderID == "" {
		orderID = c.Query("payment_id")
	}
	logger.L(ctx).Info("Payment completed",
		zap.String("pedido_id", pedidoID),
		zap.String("payment_reference", orderID))

	h.pages.Render(c, http.StatusOK, view.PageResult, view.ResultPage{
		Layout:   h.pages.LayoutWithCount(c, "Pago exitoso", snap.Count),
		Heading:  "¡Pago exitoso!",
		Message:  "Tu pedido fue procesado correctamente. Gracias por tu compra.",
		PedidoID: pedidoID,
		OrderID:  orderID,
		Success:  true,
	})
}

// Cancelled shows the page providers send the shopper to when the payment
// did not go through
func (h *CheckoutHandler) Cancelled(c *gin.Context) {
	sid := middleware.GetSessionID(c)
	h.checkout.Abandon(sid)

	h.pages.Render(c, http.StatusOK, view.PageResult, view.ResultPage{
		Layout:   h.pages.Layout(c, "Pago cancelado"),
		Heading:  "Pago cancelado",
		Message:  checkout.Cancelled,
		PedidoID: c.Query("external_reference"),
	})
}

// paymentFailed shows the failing provider's panel with the error and a
// retry action. An empty cart sends the shopper back to the cart instead.
func (h *CheckoutHandler) paymentFailed(c *gin.Context, provider checkout.Provider, err error) {
	if middleware.WantsJSON(c) {
		h.HandleError(c, err)
		return
	}
	if errors.Is(err, checkout.ErrEmptyCart) {
		h.backToCart(c, err)
		return
	}

	failed := view.PanelState{Error: err.Error(), RetryURL: PaymentPath}
	payment := view.PaymentView{
		PayPal:      view.PanelState{ActionURL: PayPalPath},
		MercadoPago: view.PanelState{ActionURL: MercadoPagoPath},
	}
	if provider == checkout.ProviderPayPal {
		payment.PayPal = failed
	} else {
		payment.MercadoPago = failed
	}

	snap := h.cart.Snapshot(c.Request.Context(), middleware.GetSessionID(c))
	h.pages.Render(c, http.StatusOK, view.PageCart, view.CartPage{
		Layout:   h.pages.LayoutWithCount(c, "Finalizar compra", snap.Count),
		Snapshot: snap,
		Payment:  &payment,
	})
}

func (h *CheckoutHandler) backToCart(c *gin.Context, err error) {
	if middleware.WantsJSON(c) {
		h.HandleError(c, err)
		return
	}
	h.pages.Redirect(c, CartPath, warning(err.Error()))
}

func paymentMethod(p view.PanelState) dto.PaymentMethod {
	return dto.PaymentMethod{
		ActionURL: p.ActionURL,
		PedidoID:  p.PedidoID,
		Synthetic: p.Synthetic,
		Error:     p.Error,
	}
}
