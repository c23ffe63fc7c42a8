package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gamestore/storefront/internal/domain/cart"
)

// Backend paths
const (
	PathCartDetails      = "/api/carrito/detalles"
	PathCartCount        = "/api/carrito/cantidad"
	PathCartAdd          = "/api/carrito/agregar"
	PathCartUpdate       = "/api/carrito/actualizar/%d"
	PathCartRemove       = "/api/carrito/eliminar/%d"
	PathOrderPayPal      = "/api/pedidos/crear-paypal"
	PathOrderMercadoPago = "/api/pedidos/crear-mercadopago"
	PathOrderProcess     = "/api/pedidos/procesar"
	PathMPPreference     = "/api/mercadopago/preference"
	PathUserInfo         = "/api/user-info"
)

// Catalog and favorites paths
const (
	PathProducts           = "/api/productos"
	PathProductsByCategory = "/api/productos/categoria/{id}"
	PathCategories         = "/api/categorias"
	PathFavorites          = "/api/favoritos"
	PathFavoriteAdd        = "/api/favoritos/agregar"
	PathFavoriteRemove     = "/api/favoritos/eliminar/{id}"
	PathFavoriteCheck      = "/api/favoritos/verificar/{id}"
)

// Admin paths
const (
	PathAdminProducts      = "/api/admin/productos"
	PathAdminProductAdd    = "/api/admin/productos/agregar"
	PathAdminProductEdit   = "/api/admin/productos/editar"
	PathAdminProductState  = "/api/admin/productos/estado"
	PathAdminProductDelete = "/api/admin/productos/eliminar/{id}"
	PathAdminCleanStock    = "/api/admin/limpiar-stock-cero"
	PathAdminOrders        = "/api/admin/pedidos"
	PathAdminOrder         = "/api/admin/pedidos/{id}"
	PathAdminOrderState    = "/api/admin/pedidos/estado"
	PathAdminUsers         = "/api/admin/usuarios"
	PathAdminUserAdd       = "/api/admin/usuarios/agregar"
	PathAdminUserEdit      = "/api/admin/usuarios/editar"
	PathAdminUserDelete    = "/api/admin/usuarios/eliminar/{id}"
	PathAdminRoles         = "/api/admin/roles"
	PathDashboardSummary   = "/api/admin/dashboard/summary"
	PathDashboardSales     = "/api/admin/dashboard/sales"
	PathDashboardTop       = "/api/admin/dashboard/top-products"
	PathDashboardRecent    = "/api/admin/dashboard/recent-orders"
)

// ID decodes identifiers the backend sends either as numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*id = ID(s)
	return nil
}

// CartDetails fetches the shopper's cart
func (c *Client) CartDetails(ctx context.Context) (cart.Snapshot, error) {
	var resp struct {
		Carrito cart.Snapshot `json:"carrito"`
	}
	if err := c.Call(ctx, http.MethodGet, PathCartDetails, nil, nil, &resp); err != nil {
		return cart.Snapshot{}, err
	}
	return resp.Carrito, nil
}

// CartCount fetches only the badge count
func (c *Client) CartCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.Call(ctx, http.MethodGet, PathCartCount, nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// AddResult is the backend answer to an add-to-cart request
type AddResult struct {
	Message      string `json:"message"`
	CarritoCount int    `json:"carrito_count"`
}

// AddToCart asks the backend to add qty units of a product
func (c *Client) AddToCart(ctx context.Context, productID int64, qty int) (AddResult, error) {
	body := map[string]any{"producto_id": productID, "cantidad": qty}
	var resp AddResult
	err := c.Call(ctx, http.MethodPost, PathCartAdd, nil, body, &resp)
	return resp, err
}

// UpdateQuantity sets a cart line quantity; bounds are enforced by the backend
func (c *Client) UpdateQuantity(ctx context.Context, lineID int64, qty int) error {
	body := map[string]any{"cantidad": qty}
	return c.Call(ctx, http.MethodPut, fmt.Sprintf(PathCartUpdate, lineID), nil, body, nil)
}

// RemoveLine deletes a cart line
func (c *Client) RemoveLine(ctx context.Context, lineID int64) error {
	return c.Call(ctx, http.MethodDelete, fmt.Sprintf(PathCartRemove, lineID), nil, nil, nil)
}

// CreatePendingOrder creates a pending order at path and returns its id
func (c *Client) CreatePendingOrder(ctx context.Context, path string) (string, error) {
	var resp struct {
		PedidoID ID `json:"pedido_id"`
	}
	if err := c.Call(ctx, http.MethodPost, path, nil, map[string]any{}, &resp); err != nil {
		return "", err
	}
	if resp.PedidoID == "" {
		return "", &APIError{Status: http.StatusOK, Message: "pedido_id ausente en la respuesta"}
	}
	return string(resp.PedidoID), nil
}

// PreferenceItem is one Mercado Pago line item
type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// PreferenceRequest asks the backend for a Mercado Pago checkout preference
type PreferenceRequest struct {
	Items    []PreferenceItem `json:"items"`
	PedidoID string           `json:"pedido_id"`
}

// PreferenceResponse carries the Mercado Pago checkout links
type PreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CheckoutURL returns the production link, falling back to the sandbox one
func (p PreferenceResponse) CheckoutURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

// CreatePreference requests a Mercado Pago checkout preference
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (PreferenceResponse, error) {
	var resp PreferenceResponse
	err := c.Call(ctx, http.MethodPost, PathMPPreference, nil, req, &resp)
	return resp, err
}

// ProcessOrder settles a pending order after the provider confirmed the payment
func (c *Client) ProcessOrder(ctx context.Context, method string, details map[string]any) error {
	body := map[string]any{"metodo_pago": method}
	body["detalles_"+method] = details
	return c.Call(ctx, http.MethodPost, PathOrderProcess, nil, body, nil)
}

// User is the logged-in shopper as reported by the backend
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     int    `json:"role"`
}

// IsAdmin reports whether the user holds the administrator role
func (u User) IsAdmin() bool {
	return u.Role == 1
}

// UserInfo returns the current user, or nil when nobody is logged in
func (c *Client) UserInfo(ctx context.Context) (*User, error) {
	var resp struct {
		LoggedIn bool  `json:"logged_in"`
		User     *User `json:"user"`
	}
	if err := c.Call(ctx, http.MethodGet, PathUserInfo, nil, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.LoggedIn {
		return nil, nil
	}
	return resp.User, nil
}

// Fetch GETs path and returns the raw payload stored under key
func (c *Client) Fetch(ctx context.Context, path string, query url.Values, key string) (json.RawMessage, error) {
	var resp map[string]json.RawMessage
	if err := c.Call(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	payload, ok := resp[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedResponse, key)
	}
	return payload, nil
}

// Send performs a mutating call and returns the backend's message, if any
func (c *Client) Send(ctx context.Context, method, path string, body any) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Call(ctx, method, path, nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// PathWithID formats a path template that ends with an integer id
func PathWithID(tmpl string, id int64) string {
	return strings.Replace(tmpl, "{id}", strconv.FormatInt(id, 10), 1)
}
