package handler

import (
	"net/http"
	"strconv"

	adminapp "github.com/gamestore/storefront/internal/application/admin"
	catalogapp "github.com/gamestore/storefront/internal/application/catalog"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Admin routes
const (
	AdminPath          = "/admin"
	AdminInventoryPath = "/admin/inventario"
	AdminOrdersPath    = "/admin/pedidos"
	AdminUsersPath     = "/admin/usuarios"
)

// AdminHandler serves the administration views. Routes are guarded by
// middleware.RequireAdmin.
type AdminHandler struct {
	BaseHandler
	pages   *Pages
	admin   *adminapp.Service
	catalog *catalogapp.Service
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(pages *Pages, admin *adminapp.Service, catalog *catalogapp.Service) *AdminHandler {
	return &AdminHandler{
		pages:   pages,
		admin:   admin,
		catalog: catalog,
	}
}

// Dashboard shows the dashboard panels for the period query parameter
func (h *AdminHandler) Dashboard(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	d := h.admin.Dashboard(c.Request.Context(), period)

	if middleware.WantsJSON(c) {
		h.Success(c, d)
		return
	}
	h.pages.Render(c, http.StatusOK, view.PageAdminDashboard, view.DashboardPage{
		Layout:    h.pages.Layout(c, "Panel de administración"),
		Period:    period,
		Dashboard: d,
	})
}

// Inventory lists the products
func (h *AdminHandler) Inventory(c *gin.Context) {
	ctx := c.Request.Context()
	filter := adminapp.ProductFilter{
		Search:     c.Query("search"),
		CategoryID: c.Query("categoria"),
		Estado:     c.Query("estado"),
	}

	products, err := h.admin.Products(ctx, filter)
	if middleware.WantsJSON(c) {
		h.list(c, products, err)
		return
	}

	page := view.InventoryPage{
		Layout:   h.pages.Layout(c, "Inventario"),
		Filter:   filter,
		Products: products,
	}
	if err != nil {
		page.Error = err.Error()
	}
	page.Categories, _ = h.catalog.Categories(ctx)
	h.pages.Render(c, http.StatusOK, view.PageAdminInventory, page)
}

// AddProduct creates a product
func (h *AdminHandler) AddProduct(c *gin.Context) {
	in, err := bindProduct(c, 0)
	if err != nil {
		h.respond(c, AdminInventoryPath, "", err)
		return
	}
	msg, err := h.admin.AddProduct(c.Request.Context(), in)
	h.respond(c, AdminInventoryPath, msg, err)
}

// EditProduct updates a product
func (h *AdminHandler) EditProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminInventoryPath, "", err)
		return
	}
	in, err := bindProduct(c, id)
	if err != nil {
		h.respond(c, AdminInventoryPath, "", err)
		return
	}
	msg, err := h.admin.EditProduct(c.Request.Context(), in)
	h.respond(c, AdminInventoryPath, msg, err)
}

// SetProductActive enables or disables a product
func (h *AdminHandler) SetProductActive(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminInventoryPath, "", err)
		return
	}
	var req dto.ActiveRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respond(c, AdminInventoryPath, "", shared.ErrInvalidInput)
		return
	}
	msg, err := h.admin.SetProductActive(c.Request.Context(), id, req.Activo)
	h.respond(c, AdminInventoryPath, msg, err)
}

// DeleteProduct deletes a product
func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminInventoryPath, "", err)
		return
	}
	msg, err := h.admin.DeleteProduct(c.Request.Context(), id)
	h.respond(c, AdminInventoryPath, msg, err)
}

// DisableOutOfStock disables every product without stock
func (h *AdminHandler) DisableOutOfStock(c *gin.Context) {
	msg, err := h.admin.DisableOutOfStock(c.Request.Context())
	h.respond(c, AdminInventoryPath, msg, err)
}

// Orders lists orders
func (h *AdminHandler) Orders(c *gin.Context) {
	filter := adminapp.OrderFilter{
		Search:      c.Query("search"),
		Estado:      c.Query("estado"),
		FechaInicio: c.Query("fecha_inicio"),
		FechaFin:    c.Query("fecha_fin"),
	}

	orders, err := h.admin.Orders(c.Request.Context(), filter)
	if middleware.WantsJSON(c) {
		h.list(c, orders, err)
		return
	}

	page := view.OrdersPage{
		Layout: h.pages.Layout(c, "Pedidos"),
		Filter: filter,
		States: adminapp.OrderStates,
		Orders: orders,
	}
	if err != nil {
		page.Error = err.Error()
	}
	h.pages.Render(c, http.StatusOK, view.PageAdminOrders, page)
}

// Order shows one order
func (h *AdminHandler) Order(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminOrdersPath, "", err)
		return
	}

	order, err := h.admin.Order(c.Request.Context(), id)
	if middleware.WantsJSON(c) {
		h.list(c, order, err)
		return
	}

	page := view.OrderPage{
		Layout: h.pages.Layout(c, "Pedido"),
		States: adminapp.OrderStates,
		Order:  order,
	}
	if err != nil {
		page.Error = err.Error()
	}
	h.pages.Render(c, http.StatusOK, view.PageAdminOrder, page)
}

// SetOrderState moves an order to another state
func (h *AdminHandler) SetOrderState(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminOrdersPath, "", err)
		return
	}
	next := AdminOrdersPath + "/" + strconv.FormatInt(id, 10)

	var req dto.OrderStateRequest
	if err := c.ShouldBind(&req); err != nil {
		h.respond(c, next, "", shared.ErrInvalidInput.WithMessage("Estado no válido"))
		return
	}
	msg, err := h.admin.SetOrderState(c.Request.Context(), id, req.Estado)
	h.respond(c, next, msg, err)
}

// Users lists accounts
func (h *AdminHandler) Users(c *gin.Context) {
	ctx := c.Request.Context()
	filter := adminapp.UserFilter{
		Search: c.Query("search"),
		RolID:  c.Query("rol"),
		Estado: c.Query("estado"),
	}

	users, err := h.admin.Users(ctx, filter)
	if middleware.WantsJSON(c) {
		h.list(c, users, err)
		return
	}

	page := view.UsersPage{
		Layout: h.pages.Layout(c, "Usuarios"),
		Filter: filter,
		Users:  users,
	}
	if err != nil {
		page.Error = err.Error()
	}
	page.Roles, _ = h.admin.Roles(ctx)
	h.pages.Render(c, http.StatusOK, view.PageAdminUsers, page)
}

// AddUser creates an account
func (h *AdminHandler) AddUser(c *gin.Context) {
	in, err := bindUser(c, 0)
	if err != nil {
		h.respond(c, AdminUsersPath, "", err)
		return
	}
	if in.Password == "" {
		h.respond(c, AdminUsersPath, "", shared.ErrInvalidInput.WithMessage("La contraseña es obligatoria"))
		return
	}
	msg, err := h.admin.AddUser(c.Request.Context(), in)
	h.respond(c, AdminUsersPath, msg, err)
}

// EditUser updates an account; an empty password keeps the current one
func (h *AdminHandler) EditUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminUsersPath, "", err)
		return
	}
	in, err := bindUser(c, id)
	if err != nil {
		h.respond(c, AdminUsersPath, "", err)
		return
	}
	msg, err := h.admin.EditUser(c.Request.Context(), in)
	h.respond(c, AdminUsersPath, msg, err)
}

// DeleteUser deletes an account
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, AdminUsersPath, "", err)
		return
	}
	msg, err := h.admin.DeleteUser(c.Request.Context(), id)
	h.respond(c, AdminUsersPath, msg, err)
}

func (h *AdminHandler) list(c *gin.Context, data any, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, data)
}

// respond answers a mutation: JSON clients get the envelope, browsers are
// sent back to next with the backend's message
func (h *AdminHandler) respond(c *gin.Context, next, msg string, err error) {
	if middleware.WantsJSON(c) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Message(c, nil, msg)
		return
	}
	if err != nil {
		h.pages.Redirect(c, next, failure(err))
		return
	}
	h.pages.Redirect(c, next, success(msg))
}

// bindProduct reads a product from a JSON body or from the inventory form
func bindProduct(c *gin.Context, id int64) (adminapp.ProductInput, error) {
	if c.ContentType() == binding.MIMEJSON {
		var in adminapp.ProductInput
		if err := c.ShouldBindJSON(&in); err != nil {
			return in, shared.ErrInvalidInput.WithMessage("Datos de producto inválidos")
		}
		in.ID = id
		return in, nil
	}

	var form dto.ProductForm
	if err := c.ShouldBind(&form); err != nil {
		return adminapp.ProductInput{}, shared.ErrInvalidInput.WithMessage("Datos de producto inválidos")
	}
	in, err := form.ToInput(id)
	if err != nil {
		return in, shared.ErrInvalidInput.WithMessage("Precio inválido")
	}
	return in, nil
}

// bindUser reads an account from a JSON body or from the users form
func bindUser(c *gin.Context, id int64) (adminapp.UserInput, error) {
	if c.ContentType() == binding.MIMEJSON {
		var in adminapp.UserInput
		if err := c.ShouldBindJSON(&in); err != nil {
			return in, shared.ErrInvalidInput.WithMessage("Datos de usuario inválidos")
		}
		in.ID = id
		return in, nil
	}

	var form dto.UserForm
	if err := c.ShouldBind(&form); err != nil {
		return adminapp.UserInput{}, shared.ErrInvalidInput.WithMessage("Datos de usuario inválidos")
	}
	return form.ToInput(id), nil
}
