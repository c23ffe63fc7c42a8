// Package admin backs the administration views: inventory, orders, users
// and the dashboard. Every operation is a thin call to the REST backend,
// whose error text is shown to the administrator unchanged.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Dashboard panel names
const (
	PanelSummary      = "summary"
	PanelSales        = "sales"
	PanelTopProducts  = "top_products"
	PanelRecentOrders = "recent_orders"
)

// Backend is the part of the REST backend the admin views depend on
type Backend interface {
	Fetch(ctx context.Context, path string, query url.Values, key string) (json.RawMessage, error)
	Send(ctx context.Context, method, path string, body any) (string, error)
}

// Service handles the admin operations
type Service struct {
	backend Backend
	logger  *zap.Logger
}

// NewService creates a new admin Service
func NewService(b Backend, log *zap.Logger) *Service {
	return &Service{
		backend: b,
		logger:  log,
	}
}

// Products lists the inventory
func (s *Service) Products(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := query(map[string]string{"search": f.Search, "categoria": f.CategoryID, "estado": f.Estado})
	return fetch[[]Product](ctx, s.backend, backend.PathAdminProducts, q, "productos")
}

// AddProduct creates a product
func (s *Service) AddProduct(ctx context.Context, in ProductInput) (string, error) {
	in.ID = 0
	return s.send(ctx, http.MethodPost, backend.PathAdminProductAdd, in)
}

// EditProduct updates a product
func (s *Service) EditProduct(ctx context.Context, in ProductInput) (string, error) {
	if in.ID <= 0 {
		return "", shared.ErrInvalidInput.WithMessage("ID de producto requerido")
	}
	return s.send(ctx, http.MethodPut, backend.PathAdminProductEdit, in)
}

// SetProductActive enables or disables a product
func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) (string, error) {
	return s.send(ctx, http.MethodPut, backend.PathAdminProductState, map[string]any{"id": id, "activo": active})
}

// DeleteProduct deletes a product
func (s *Service) DeleteProduct(ctx context.Context, id int64) (string, error) {
	return s.send(ctx, http.MethodDelete, backend.PathWithID(backend.PathAdminProductDelete, id), nil)
}

// DisableOutOfStock disables every product without stock
func (s *Service) DisableOutOfStock(ctx context.Context) (string, error) {
	return s.send(ctx, http.MethodPost, backend.PathAdminCleanStock, map[string]any{})
}

// Orders lists orders
func (s *Service) Orders(ctx context.Context, f OrderFilter) ([]Order, error) {
	q := query(map[string]string{
		"search":       f.Search,
		"estado":       f.Estado,
		"fecha_inicio": f.FechaInicio,
		"fecha_fin":    f.FechaFin,
	})
	return fetch[[]Order](ctx, s.backend, backend.PathAdminOrders, q, "pedidos")
}

// Order returns one order with its items
func (s *Service) Order(ctx context.Context, id int64) (OrderDetail, error) {
	return fetch[OrderDetail](ctx, s.backend, backend.PathWithID(backend.PathAdminOrder, id), nil, "pedido")
}

// SetOrderState moves an order to another state
func (s *Service) SetOrderState(ctx context.Context, id int64, state string) (string, error) {
	if !slices.Contains(OrderStates, state) {
		return "", shared.ErrInvalidInput.WithMessage("Estado no válido")
	}
	return s.send(ctx, http.MethodPut, backend.PathAdminOrderState, map[string]any{"pedido_id": id, "estado": state})
}

// Users lists accounts
func (s *Service) Users(ctx context.Context, f UserFilter) ([]User, error) {
	q := query(map[string]string{"search": f.Search, "rol": f.RolID, "estado": f.Estado})
	return fetch[[]User](ctx, s.backend, backend.PathAdminUsers, q, "usuarios")
}

// Roles lists the account roles
func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	return fetch[[]Role](ctx, s.backend, backend.PathAdminRoles, nil, "roles")
}

// AddUser creates an account
func (s *Service) AddUser(ctx context.Context, in UserInput) (string, error) {
	in.ID = 0
	return s.send(ctx, http.MethodPost, backend.PathAdminUserAdd, in)
}

// EditUser updates an account
func (s *Service) EditUser(ctx context.Context, in UserInput) (string, error) {
	if in.ID <= 0 {
		return "", shared.ErrInvalidInput.WithMessage("ID de usuario requerido")
	}
	return s.send(ctx, http.MethodPut, backend.PathAdminUserEdit, in)
}

// DeleteUser deletes an account
func (s *Service) DeleteUser(ctx context.Context, id int64) (string, error) {
	return s.send(ctx, http.MethodDelete, backend.PathWithID(backend.PathAdminUserDelete, id), nil)
}

// Dashboard loads the dashboard panels concurrently. A failing panel does
// not hide the others; its message is recorded in Dashboard.Errors.
func (s *Service) Dashboard(ctx context.Context, period string) Dashboard {
	if period == "" {
		period = "month"
	}

	var (
		d  = Dashboard{Errors: map[string]string{}}
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(panel string, err error) {
		mu.Lock()
		d.Errors[panel] = err.Error()
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		summary, err := fetch[Summary](ctx, s.backend, backend.PathDashboardSummary, nil, "summary")
		if err != nil {
			record(PanelSummary, err)
			return
		}
		d.Summary = summary
	}()
	go func() {
		defer wg.Done()
		chart, err := fetch[Chart](ctx, s.backend, backend.PathDashboardSales, url.Values{"period": {period}}, "chart")
		if err != nil {
			record(PanelSales, err)
			return
		}
		d.Sales = chart
	}()
	go func() {
		defer wg.Done()
		chart, err := fetch[Chart](ctx, s.backend, backend.PathDashboardTop, nil, "chart")
		if err != nil {
			record(PanelTopProducts, err)
			return
		}
		d.TopProducts = chart
	}()
	go func() {
		defer wg.Done()
		orders, err := fetch[[]RecentOrder](ctx, s.backend, backend.PathDashboardRecent, nil, "orders")
		if err != nil {
			record(PanelRecentOrders, err)
			return
		}
		d.RecentOrders = orders
	}()
	wg.Wait()

	if len(d.Errors) > 0 {
		s.logger.Warn("Dashboard loaded with failing panels", zap.Any("errors", d.Errors))
	}
	return d
}

func (s *Service) send(ctx context.Context, method, path string, body any) (string, error) {
	msg, err := s.backend.Send(ctx, method, path, body)
	if err != nil {
		logger.L(ctx).Info("Admin operation rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return "", backend.UserError(err)
	}
	return msg, nil
}

func fetch[T any](ctx context.Context, b Backend, path string, q url.Values, key string) (T, error) {
	var out T
	raw, err := b.Fetch(ctx, path, q, key)
	if err != nil {
		logger.L(ctx).Warn("Admin request failed", zap.String("path", path), zap.Error(err))
		return out, backend.UserError(err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.L(ctx).Warn("Admin payload could not be decoded",
			zap.String("path", path),
			zap.Error(fmt.Errorf("%w: %v", backend.ErrMalformedResponse, err)))
		return out, backend.UserError(err)
	}
	return out, nil
}

// query drops empty filters
func query(params map[string]string) url.Values {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return nil
	}
	return q
}
