package handler

import (
	"errors"
	"net/http"

	cartapp "github.com/gamestore/storefront/internal/application/cart"
	checkoutapp "github.com/gamestore/storefront/internal/application/checkout"
	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
)

// CartPath is the cart page
const CartPath = "/carrito"

// CartHandler serves the cart page and the cart mutations.
//
// Browsers post forms and are redirected back to the cart (post/redirect/get)
// with the outcome flashed as a notice. JSON clients receive the new snapshot
// and badge in the response envelope.
type CartHandler struct {
	BaseHandler
	pages    *Pages
	cart     *cartapp.Service
	checkout *checkoutapp.Orchestrator
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(pages *Pages, cart *cartapp.Service, checkout *checkoutapp.Orchestrator) *CartHandler {
	return &CartHandler{
		pages:    pages,
		cart:     cart,
		checkout: checkout,
	}
}

// Show renders the cart. Coming back to the cart abandons any payment attempt.
// @Summary     Show the cart
// @Tags        cart
// @Produce     json,html
// @Success     200 {object} dto.Response{data=dto.CartResponse}
// @Router      /carrito [get]
func (h *CartHandler) Show(c *gin.Context) {
	sid := middleware.GetSessionID(c)
	h.checkout.Abandon(sid)

	snap := h.cart.Refresh(c.Request.Context(), sid)
	if middleware.WantsJSON(c) {
		h.Success(c, dto.NewCartResponse(snap))
		return
	}
	h.renderCart(c, http.StatusOK, snap, nil)
}

// Add adds one unit of a product
// @Summary     Add one unit of a product
// @Tags        cart
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       request body dto.AddToCartRequest true "Product to add"
// @Success     200 {object} dto.Response{data=dto.CartResponse}
// @Failure     400 {object} dto.Response
// @Failure     404 {object} dto.Response
// @Failure     409 {object} dto.Response
// @Failure     503 {object} dto.Response
// @Router      /carrito/agregar [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, shared.ErrInvalidInput.WithMessage("Producto inválido"), refererOr(c, CartPath))
		return
	}

	res, err := h.cart.AddProduct(c.Request.Context(), middleware.GetSessionID(c), req.ProductoID)
	if err != nil {
		h.fail(c, err, refererOr(c, CartPath))
		return
	}
	h.done(c, res, refererOr(c, CartPath))
}

// Quantity steps a line up or down, or sets it to an explicit quantity
// @Summary     Step or set a line quantity
// @Tags        cart
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       id path int true "Cart line ID"
// @Param       request body dto.QuantityRequest true "op inc/dec, or cantidad"
// @Success     200 {object} dto.Response{data=dto.CartResponse}
// @Failure     400 {object} dto.Response
// @Failure     404 {object} dto.Response
// @Failure     409 {object} dto.Response
// @Router      /carrito/lineas/{id}/cantidad [put]
func (h *CartHandler) Quantity(c *gin.Context) {
	lineID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err, CartPath)
		return
	}
	var req dto.QuantityRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, shared.ErrInvalidInput.WithMessage("Cantidad inválida"), CartPath)
		return
	}

	ctx := c.Request.Context()
	sid := middleware.GetSessionID(c)

	var res cartapp.Result
	switch req.Op {
	case "inc":
		res, err = h.cart.Step(ctx, sid, lineID, 1)
	case "dec":
		res, err = h.cart.Step(ctx, sid, lineID, -1)
	case "":
		if req.Cantidad < 1 {
			err = shared.ErrInvalidInput.WithMessage("Cantidad inválida")
			break
		}
		res, err = h.cart.SetQuantity(ctx, sid, lineID, req.Cantidad)
	default:
		err = shared.ErrInvalidInput.WithMessage("Operación inválida")
	}
	if err != nil {
		h.fail(c, err, CartPath)
		return
	}
	h.done(c, res, CartPath)
}

// Remove deletes a line. Without confirmation browsers get the cart with a
// confirmation dialog for the line and nothing is sent to the backend.
// @Summary     Remove a cart line
// @Tags        cart
// @Accept      json,x-www-form-urlencoded
// @Produce     json
// @Param       id path int true "Cart line ID"
// @Param       request body dto.RemoveRequest false "confirm must be true"
// @Success     200 {object} dto.Response{data=dto.CartResponse}
// @Failure     404 {object} dto.Response
// @Failure     409 {object} dto.Response
// @Router      /carrito/lineas/{id} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	lineID, err := paramID(c, "id")
	if err != nil {
		h.fail(c, err, CartPath)
		return
	}
	var req dto.RemoveRequest
	_ = c.ShouldBind(&req)

	ctx := c.Request.Context()
	sid := middleware.GetSessionID(c)

	res, err := h.cart.RemoveLine(ctx, sid, lineID, req.Confirm)
	if errors.Is(err, shared.ErrConfirmationRequired) && !middleware.WantsJSON(c) {
		snap := h.cart.Snapshot(ctx, sid)
		line, ok := snap.Line(lineID)
		if !ok {
			h.fail(c, shared.ErrNotFound.WithMessage("El producto ya no está en el carrito"), CartPath)
			return
		}
		h.renderCart(c, http.StatusOK, snap, &line)
		return
	}
	if err != nil {
		h.fail(c, err, CartPath)
		return
	}
	h.done(c, res, CartPath)
}

func (h *CartHandler) renderCart(c *gin.Context, status int, snap cart.Snapshot, confirm *cart.Line) {
	h.pages.Render(c, status, view.PageCart, view.CartPage{
		Layout:        h.pages.LayoutWithCount(c, "Carrito", snap.Count),
		Snapshot:      snap,
		ConfirmRemove: confirm,
	})
}

func (h *CartHandler) done(c *gin.Context, res cartapp.Result, next string) {
	if middleware.WantsJSON(c) {
		h.Message(c, dto.NewCartResponse(res.Snapshot), res.Message)
		return
	}
	h.pages.Redirect(c, next, success(res.Message))
}

// fail leaves the cart as the backend has it and shows the error
func (h *CartHandler) fail(c *gin.Context, err error, next string) {
	if middleware.WantsJSON(c) {
		h.HandleError(c, err)
		return
	}
	h.pages.Redirect(c, next, failure(err))
}

// refererOr returns the same-site page the form was posted from, or fallback
func refererOr(c *gin.Context, fallback string) string {
	ref := c.Request.Referer()
	if ref == "" {
		return fallback
	}
	u, err := c.Request.URL.Parse(ref)
	if err != nil || u.Host != c.Request.Host {
		return fallback
	}
	return u.RequestURI()
}
