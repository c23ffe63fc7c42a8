package handler

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gamestore/storefront/internal/domain/checkout"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutHandler_Payment(t *testing.T) {
	t.Run("renders both payment methods", func(t *testing.T) {
		f := newFixture(t)

		w := f.page(http.MethodGet, PaymentPath, nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Finalizar Compra")
		assert.Contains(t, body, "Pagar con PayPal")
		assert.Contains(t, body, `name="pedido_id" value="77"`)
		assert.Contains(t, body, "Pagar con Mercado Pago")
		assert.Contains(t, body, `action="/checkout/mercadopago"`)
	})

	t.Run("describes the methods to JSON clients", func(t *testing.T) {
		f := newFixture(t)

		w := f.api(http.MethodGet, PaymentPath, nil)

		require.Equal(t, http.StatusOK, w.Code)
		env := decode[dto.PaymentResponse](t, w)
		assert.Equal(t, 3, env.Data.Cart.Count)
		assert.Equal(t, "77", env.Data.PayPal.PedidoID)
		assert.Equal(t, PayPalPath, env.Data.PayPal.ActionURL)
		assert.False(t, env.Data.PayPal.Synthetic)
		assert.Equal(t, MercadoPagoPath, env.Data.MercadoPago.ActionURL)
	})

	t.Run("sends an empty cart back", func(t *testing.T) {
		f := newFixture(t)
		f.backend.emptyCart()

		w := f.page(http.MethodGet, PaymentPath, nil)

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, CartPath, w.Header().Get("Location"))
		notice := flashed(t, w)
		require.NotNil(t, notice)
		assert.Equal(t, view.NoticeWarning, notice.Kind)
		assert.Equal(t, checkout.ErrEmptyCart.Message, notice.Message)
	})

	t.Run("refuses an empty cart to JSON clients", func(t *testing.T) {
		f := newFixture(t)
		f.backend.emptyCart()

		w := f.api(http.MethodGet, PaymentPath, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeEmptyCart, decode[any](t, w).Code)
	})
}

func TestCheckoutHandler_PendingOrderNotFound(t *testing.T) {
	f := newFixture(t)
	f.backend.noPayPalOrders = true

	w := f.page(http.MethodGet, PaymentPath, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Pagar con PayPal")
	assert.Contains(t, body, `name="pedido_id" value="temp-`)
	_, asked := f.backend.call(http.MethodPost, "/api/pedidos/crear-paypal")
	assert.True(t, asked)

	w = f.page(http.MethodPost, PayPalPath, url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Len(t, f.paypal.created, 1)
	assert.True(t, strings.HasPrefix(f.paypal.created[0].ReferenceID, "temp-"))
}

func TestCheckoutHandler_PayPalFlow(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.page(http.MethodGet, PaymentPath, nil).Code)

	w := f.page(http.MethodPost, PayPalPath, url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "https://paypal.example/approve?token=PP-1", w.Header().Get("Location"))

	require.Len(t, f.paypal.created, 1)
	created := f.paypal.created[0]
	assert.Equal(t, "77", created.ReferenceID)
	assert.Equal(t, "169.48", created.Amount.StringFixed(2))
	assert.Equal(t, "http://shop.test/checkout/paypal/return", created.ReturnURL)

	w = f.page(http.MethodGet, "/checkout/paypal/return?token=PP-1&PayerID=PAYER-1", nil)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	location := w.Header().Get("Location")
	assert.Equal(t, "/pago-exitoso?paypal_order_id=PP-1&pedido_id=77", location)
	assert.Equal(t, []string{"PP-1"}, f.paypal.captured)

	settled, ok := f.backend.call(http.MethodPost, "/api/pedidos/procesar")
	require.True(t, ok)
	assert.Equal(t, "paypal", settled.Body["metodo_pago"])
	details, _ := settled.Body["detalles_paypal"].(map[string]any)
	assert.Equal(t, "CAP-1", details["capture_id"])
	assert.Equal(t, "77", details["pedido_id"])

	w = f.page(http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "¡Pago exitoso!")
	assert.Contains(t, body, "77")
	assert.Contains(t, body, "PP-1")
	assert.Equal(t, 0, f.app.Cart.Snapshot(t.Context(), f.sid).Count)
}

func TestCheckoutHandler_PayPalReturn(t *testing.T) {
	t.Run("without an attempt shows the PayPal error panel", func(t *testing.T) {
		f := newFixture(t)

		w := f.page(http.MethodGet, "/checkout/paypal/return?token=PP-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Error con PayPal")
		assert.Contains(t, body, checkout.ErrNoSession.Message)
		assert.Contains(t, body, `href="/carrito/pago"`)
		assert.Empty(t, f.paypal.captured)
	})

	t.Run("an incomplete capture is not settled", func(t *testing.T) {
		f := newFixture(t)
		f.paypal.captureStatus = "PENDING"
		f.page(http.MethodGet, PaymentPath, nil)
		f.page(http.MethodPost, PayPalPath, url.Values{})

		w := f.page(http.MethodGet, "/checkout/paypal/return?token=PP-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "El pago no pudo completarse (estado PENDING)")
		_, settled := f.backend.call(http.MethodPost, "/api/pedidos/procesar")
		assert.False(t, settled)
	})
}

func TestCheckoutHandler_PayPalCapture(t *testing.T) {
	f := newFixture(t)
	f.api(http.MethodGet, PaymentPath, nil)

	w := f.api(http.MethodPost, PayPalPath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[dto.PayPalOrderResponse](t, w)
	assert.Equal(t, "PP-1", order.Data.OrderID)
	assert.Equal(t, "77", order.Data.PedidoID)

	w = f.api(http.MethodPost, "/checkout/paypal/capture", map[string]any{"order_id": "PP-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[dto.RedirectResponse](t, w)
	assert.True(t, strings.HasPrefix(env.Data.RedirectURL, "/pago-exitoso?"))

	t.Run("only captures the order created for the session", func(t *testing.T) {
		f := newFixture(t)
		f.api(http.MethodGet, PaymentPath, nil)

		w := f.api(http.MethodPost, "/checkout/paypal/capture", map[string]any{"order_id": "PP-CHEAP"})

		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		assert.Empty(t, f.paypal.captured)
		_, settled := f.backend.call(http.MethodPost, "/api/pedidos/procesar")
		assert.False(t, settled)
	})

	t.Run("requires the order id", func(t *testing.T) {
		w := f.api(http.MethodPost, "/checkout/paypal/capture", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckoutHandler_PayPalCancel(t *testing.T) {
	f := newFixture(t)
	f.page(http.MethodGet, PaymentPath, nil)

	w := f.page(http.MethodGet, "/checkout/paypal/cancel?token=PP-1", nil)

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, CartPath, w.Header().Get("Location"))
	notice := flashed(t, w)
	require.NotNil(t, notice)
	assert.Equal(t, view.NoticeWarning, notice.Kind)
	assert.Equal(t, checkout.Cancelled, notice.Message)
	_, open := f.app.Checkout.Session(f.sid)
	assert.False(t, open)
}

func TestCheckoutHandler_PayPalError(t *testing.T) {
	f := newFixture(t)
	f.api(http.MethodGet, PaymentPath, nil)

	w := f.api(http.MethodPost, "/checkout/paypal/error", map[string]any{"reason": "INSTRUMENT_DECLINED"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := decode[any](t, w)
	assert.Equal(t, dto.ErrCodePayment, env.Code)
	assert.Contains(t, env.Error, "INSTRUMENT_DECLINED")
}

func TestCheckoutHandler_MercadoPago(t *testing.T) {
	t.Run("redirects to the checkout link", func(t *testing.T) {
		f := newFixture(t)
		f.page(http.MethodGet, CartPath, nil)

		w := f.page(http.MethodPost, MercadoPagoPath, url.Values{})

		require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
		assert.Equal(t, "https://mp.example/checkout/pref-1", w.Header().Get("Location"))

		pref, ok := f.backend.call(http.MethodPost, "/api/mercadopago/preference")
		require.True(t, ok)
		assert.Equal(t, "88", pref.Body["pedido_id"])
		items, _ := pref.Body["items"].([]any)
		assert.Len(t, items, 2)
	})

	t.Run("shows the pending order failure in its panel", func(t *testing.T) {
		f := newFixture(t)
		f.backend.failMPOrder = true
		f.page(http.MethodGet, CartPath, nil)

		w := f.page(http.MethodPost, MercadoPagoPath, url.Values{})

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Error con Mercado Pago")
		assert.Contains(t, body, "Stock insuficiente para Zelda")
		assert.Contains(t, body, "Pagar con PayPal")
		_, asked := f.backend.call(http.MethodPost, "/api/mercadopago/preference")
		assert.False(t, asked)
	})

	t.Run("returns the link to JSON clients", func(t *testing.T) {
		f := newFixture(t)
		f.api(http.MethodGet, CartPath, nil)

		w := f.api(http.MethodPost, MercadoPagoPath, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://mp.example/checkout/pref-1", decode[dto.RedirectResponse](t, w).Data.RedirectURL)
	})
}

func TestCheckoutHandler_Results(t *testing.T) {
	t.Run("success page reloads the cart", func(t *testing.T) {
		f := newFixture(t)
		f.page(http.MethodGet, CartPath, nil)
		f.backend.emptyCart()

		w := f.page(http.MethodGet, "/pago-exitoso?external_reference=88&payment_id=123", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "88")
		assert.Contains(t, w.Body.String(), "123")
		assert.Equal(t, 0, f.app.Cart.Snapshot(t.Context(), f.sid).Count)
	})

	t.Run("cancelled page offers a retry", func(t *testing.T) {
		f := newFixture(t)

		w := f.page(http.MethodGet, "/pago-cancelado?external_reference=88", nil)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Pago cancelado")
		assert.Contains(t, body, "Intentar nuevamente")
		assert.Contains(t, body, "88")
	})
}
