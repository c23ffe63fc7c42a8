package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gamestore/storefront/internal/application"
	checkoutapp "github.com/gamestore/storefront/internal/application/checkout"
	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/cache"
	"github.com/gamestore/storefront/internal/infrastructure/payment"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sessionCookie = "sf_session"

type fakeProduct struct {
	ID        int64
	Nombre    string
	Precio    decimal.Decimal
	Stock     int
	Categoria string
}

var shelf = []fakeProduct{
	{ID: 1, Nombre: "Zelda", Precio: decimal.RequireFromString("59.99"), Stock: 5, Categoria: "Aventura"},
	{ID: 2, Nombre: "Mario Kart", Precio: decimal.RequireFromString("49.50"), Stock: 5, Categoria: "Carreras"},
	{ID: 3, Nombre: "Hades", Precio: decimal.RequireFromString("24.99"), Stock: 2, Categoria: "Acción"},
}

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeBackend is an in-process stand-in for the REST backend
type fakeBackend struct {
	mu       sync.Mutex
	lines    []cart.Line
	nextLine int64
	user     *backend.User
	calls    []recordedCall

	failDetails bool
	failCount   bool
	failMPOrder bool
	// noPayPalOrders answers the PayPal pending-order route with a bare 404
	noPayPalOrders bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		lines: []cart.Line{
			line(1, shelf[0], 2),
			line(2, shelf[1], 1),
		},
		nextLine: 3,
	}
}

func line(id int64, p fakeProduct, qty int) cart.Line {
	return cart.Line{
		ID:             id,
		ProductoID:     p.ID,
		Nombre:         p.Nombre,
		PrecioUnitario: p.Precio,
		Cantidad:       qty,
		Stock:          p.Stock,
		Total:          p.Precio.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func (b *fakeBackend) emptyCart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

func (b *fakeBackend) setUser(u *backend.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = u
}

func (b *fakeBackend) lineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// call returns the last recorded request for method and path
func (b *fakeBackend) call(method, path string) (recordedCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Method == method && b.calls[i].Path == path {
			return b.calls[i], true
		}
	}
	return recordedCall{}, false
}

func (b *fakeBackend) record(r *http.Request) map[string]any {
	var body map[string]any
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
	}
	b.mu.Lock()
	b.calls = append(b.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
	b.mu.Unlock()
	return body
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func refuse(w http.ResponseWriter, status int, msg string) {
	reply(w, status, map[string]any{"success": false, "error": msg})
}

func (b *fakeBackend) snapshot() cart.Snapshot {
	snap := cart.Snapshot{Items: append([]cart.Line(nil), b.lines...), Subtotal: decimal.Zero}
	for _, l := range b.lines {
		snap.Subtotal = snap.Subtotal.Add(l.Total)
	}
	snap.Total = snap.Subtotal
	snap.Count = len(b.lines)
	return snap
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/user-info", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		user := b.user
		b.mu.Unlock()
		if user == nil {
			reply(w, http.StatusOK, map[string]any{"success": true, "logged_in": false})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "logged_in": true, "user": user})
	})

	mux.HandleFunc("GET /api/carrito/detalles", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failDetails {
			refuse(w, http.StatusInternalServerError, "Error interno")
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "carrito": b.snapshot()})
	})

	mux.HandleFunc("GET /api/carrito/cantidad", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failCount {
			refuse(w, http.StatusInternalServerError, "Error interno")
			return
		}
		reply(w, http.StatusOK, map[string]any{"count": len(b.lines)})
	})

	mux.HandleFunc("POST /api/carrito/agregar", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		id, _ := body["producto_id"].(float64)

		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.lines {
			if l.ProductoID == int64(id) {
				if l.Cantidad+1 > l.Stock {
					refuse(w, http.StatusBadRequest, "Stock insuficiente")
					return
				}
				for _, p := range shelf {
					if p.ID == l.ProductoID {
						b.lines[i] = line(l.ID, p, l.Cantidad+1)
					}
				}
				reply(w, http.StatusOK, map[string]any{"success": true, "message": "Producto agregado al carrito", "carrito_count": len(b.lines)})
				return
			}
		}
		for _, p := range shelf {
			if p.ID == int64(id) {
				b.lines = append(b.lines, line(b.nextLine, p, 1))
				b.nextLine++
				reply(w, http.StatusOK, map[string]any{"success": true, "message": "Producto agregado al carrito", "carrito_count": len(b.lines)})
				return
			}
		}
		refuse(w, http.StatusNotFound, "Producto no encontrado")
	})

	mux.HandleFunc("PUT /api/carrito/actualizar/{id}", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		qty, _ := body["cantidad"].(float64)

		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.lines {
			if l.ID != id {
				continue
			}
			if int(qty) < 1 {
				refuse(w, http.StatusBadRequest, "Cantidad inválida")
				return
			}
			if int(qty) > l.Stock {
				refuse(w, http.StatusBadRequest, "Stock insuficiente")
				return
			}
			l.Cantidad = int(qty)
			l.Total = l.PrecioUnitario.Mul(decimal.NewFromInt(int64(qty)))
			b.lines[i] = l
			reply(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		refuse(w, http.StatusNotFound, "Producto no encontrado en el carrito")
	})

	mux.HandleFunc("DELETE /api/carrito/eliminar/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.lines {
			if l.ID == id {
				b.lines = append(b.lines[:i], b.lines[i+1:]...)
				reply(w, http.StatusOK, map[string]any{"success": true})
				return
			}
		}
		refuse(w, http.StatusNotFound, "Producto no encontrado en el carrito")
	})

	mux.HandleFunc("POST /api/pedidos/crear-paypal", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		missing := b.noPayPalOrders
		b.mu.Unlock()
		if missing {
			http.NotFound(w, r)
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "pedido_id": 77})
	})

	mux.HandleFunc("POST /api/pedidos/crear-mercadopago", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		fail := b.failMPOrder
		b.mu.Unlock()
		if fail {
			refuse(w, http.StatusBadRequest, "Stock insuficiente para Zelda")
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "pedido_id": "88"})
	})

	mux.HandleFunc("POST /api/mercadopago/preference", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		reply(w, http.StatusOK, map[string]any{"id": "pref-1", "init_point": "https://mp.example/checkout/pref-1"})
	})

	mux.HandleFunc("POST /api/pedidos/procesar", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		b.lines = nil
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]any{"success": true, "message": "Pedido procesado"})
	})

	mux.HandleFunc("GET /api/productos", func(w http.ResponseWriter, r *http.Request) {
		products := make([]map[string]any, 0, len(shelf))
		for _, p := range shelf {
			if c := r.URL.Query().Get("categoria"); c != "" && c != p.Categoria {
				continue
			}
			products = append(products, map[string]any{
				"id": p.ID, "nombre": p.Nombre, "precio": p.Precio, "stock": p.Stock, "categoria": p.Categoria,
			})
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "productos": products})
	})

	mux.HandleFunc("GET /api/productos/categoria/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		names := map[string]string{"1": "Aventura", "2": "Carreras"}
		products := []map[string]any{}
		for _, p := range shelf {
			if p.Categoria == names[r.PathValue("id")] {
				products = append(products, map[string]any{
					"id": p.ID, "nombre": p.Nombre, "precio": p.Precio, "stock": p.Stock, "categoria": p.Categoria,
				})
			}
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "productos": products})
	})

	mux.HandleFunc("GET /api/favoritos/verificar/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		user := b.user
		b.mu.Unlock()
		if user == nil {
			refuse(w, http.StatusUnauthorized, "No autenticado")
			return
		}
		// Hades is the only favorite
		reply(w, http.StatusOK, map[string]any{"success": true, "es_favorito": r.PathValue("id") == "3"})
	})

	mux.HandleFunc("GET /api/categorias", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "categorias": []map[string]any{
			{"id": 1, "nombre": "Aventura"},
			{"id": 2, "nombre": "Carreras"},
		}})
	})

	mux.HandleFunc("GET /api/favoritos", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		user := b.user
		b.mu.Unlock()
		if user == nil {
			refuse(w, http.StatusUnauthorized, "No autenticado")
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "favoritos": []map[string]any{
			{"id": 1, "fecha_agregado": "2024-05-01", "producto": map[string]any{"id": 3, "nombre": "Hades", "precio": "24.99"}},
		}})
	})

	mux.HandleFunc("POST /api/favoritos/agregar", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		reply(w, http.StatusOK, map[string]any{"success": true, "message": "Producto agregado a favoritos"})
	})

	mux.HandleFunc("/api/admin/", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.Method != http.MethodGet {
			reply(w, http.StatusOK, map[string]any{"success": true, "message": "Operación realizada"})
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"success":   true,
			"productos": []any{},
			"pedidos":   []any{},
			"usuarios":  []any{},
			"roles":     []map[string]any{{"id": 1, "nombre": "admin"}, {"id": 2, "nombre": "cliente"}},
			"pedido":    map[string]any{"id_pedido": 9, "estado": "pendiente", "productos": []any{}},
			"summary":   map[string]any{},
			"chart":     map[string]any{},
			"orders":    []any{},
		})
	})

	return mux
}

// fakePayPal stands in for the PayPal REST API
type fakePayPal struct {
	mu            sync.Mutex
	created       []payment.CreateOrderRequest
	captured      []string
	captureStatus string
}

func (p *fakePayPal) Currency() string { return "USD" }

func (p *fakePayPal) CreateOrder(_ context.Context, req payment.CreateOrderRequest) (*payment.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, req)
	return &payment.Order{
		ID:         "PP-1",
		Status:     "CREATED",
		ApproveURL: "https://paypal.example/approve?token=PP-1",
	}, nil
}

func (p *fakePayPal) CaptureOrder(_ context.Context, orderID string) (*payment.Capture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captured = append(p.captured, orderID)
	status := p.captureStatus
	if status == "" {
		status = payment.PayPalStatusCompleted
	}
	amount := "0.00"
	if n := len(p.created); n > 0 {
		amount = p.created[n-1].Amount.StringFixed(2)
	}
	return &payment.Capture{OrderID: orderID, Status: status, CaptureID: "CAP-1", PayerID: "PAYER-1", Amount: amount}, nil
}

type readyNow struct{}

func (readyNow) Await(context.Context) error { return nil }

func (readyNow) Timeout() time.Duration { return 20 * time.Second }

type fixture struct {
	t       *testing.T
	backend *fakeBackend
	paypal  *fakePayPal
	app     *application.App
	engine  *gin.Engine
	sid     string
}

func newFixture(t *testing.T, opts ...func(*application.Deps)) *fixture {
	t.Helper()

	fb := newFakeBackend()
	server := httptest.NewServer(fb.handler())
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{
		BaseURL:         server.URL,
		Timeout:         2 * time.Second,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	})
	require.NoError(t, err)

	store := cache.NewInMemorySnapshotStore(time.Hour)
	signal := cache.NewInMemoryCountSignal(time.Minute)
	claims := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() {
		_ = store.Close()
		_ = signal.Close()
		_ = claims.Close()
	})

	pp := &fakePayPal{}
	deps := application.Deps{
		Backend: client,
		Store:   store,
		Signal:  signal,
		Claims:  claims,
		PayPal:  pp,
		Ready:   readyNow{},
		URLs: checkoutapp.URLs{
			PayPalReturn: "http://shop.test/checkout/paypal/return",
			PayPalCancel: "http://shop.test/checkout/paypal/cancel",
			Success:      "/pago-exitoso",
		},
		MaxWidgets: 10,
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	app, err := application.New(deps)
	require.NoError(t, err)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	pages := NewPages(renderer, app.Catalog, app.Badges, zap.NewNop())

	cartH := NewCartHandler(pages, app.Cart, app.Checkout)
	badgeH := NewBadgeHandler(app.Badges, WithBadgeHeartbeat(time.Hour), WithBadgeRefresh(time.Hour))
	checkoutH := NewCheckoutHandler(pages, app.Cart, app.Checkout, app.Badges)
	catalogH := NewCatalogHandler(pages, app.Catalog)
	adminH := NewAdminHandler(pages, app.Admin, app.Catalog)
	systemH := NewSystemHandler("storefront", "test", app.Backend, app.Badges)

	engine := gin.New()
	engine.Use(middleware.Session(middleware.SessionConfig{
		CookieName:    sessionCookie,
		BackendCookie: "session",
		Path:          "/",
		MaxAge:        3600,
	}))

	engine.GET("/", catalogH.Products)
	engine.GET(FavoritesPath, catalogH.Favorites)
	engine.POST("/favoritos/:id", catalogH.AddFavorite)

	carts := engine.Group(CartPath)
	carts.GET("", cartH.Show)
	carts.GET("/pago", checkoutH.Payment)
	carts.POST("/agregar", cartH.Add)
	carts.POST("/lineas/:id/cantidad", cartH.Quantity)
	carts.POST("/lineas/:id/eliminar", cartH.Remove)
	carts.GET("/badge", badgeH.Show)
	carts.GET("/badge/stream", badgeH.Stream)

	co := engine.Group("/checkout")
	co.POST("/paypal", checkoutH.PayPal)
	co.POST("/paypal/capture", checkoutH.PayPalCapture)
	co.POST("/paypal/error", checkoutH.PayPalError)
	co.GET("/paypal/return", checkoutH.PayPalReturn)
	co.GET("/paypal/cancel", checkoutH.PayPalCancel)
	co.POST("/mercadopago", checkoutH.MercadoPago)

	engine.GET("/pago-exitoso", checkoutH.Succeeded)
	engine.GET("/pago-cancelado", checkoutH.Cancelled)

	admin := engine.Group(AdminPath, middleware.RequireAdmin(app.Backend))
	admin.GET("", adminH.Dashboard)
	admin.GET("/inventario", adminH.Inventory)
	admin.POST("/inventario", adminH.AddProduct)
	admin.POST("/inventario/:id", adminH.EditProduct)
	admin.POST("/inventario/:id/eliminar", adminH.DeleteProduct)
	admin.GET("/pedidos/:id", adminH.Order)
	admin.POST("/pedidos/:id/estado", adminH.SetOrderState)
	admin.POST("/usuarios", adminH.AddUser)
	admin.POST("/usuarios/:id/eliminar", adminH.DeleteUser)

	engine.GET("/health", systemH.Health)

	return &fixture{
		t:       t,
		backend: fb,
		paypal:  pp,
		app:     app,
		engine:  engine,
		sid:     uuid.NewString(),
	}
}

// request builds a request of the fixture's browser session
func (f *fixture) request(method, target string, form url.Values) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: f.sid})
	return req
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// page performs a browser request
func (f *fixture) page(method, target string, form url.Values) *httptest.ResponseRecorder {
	return f.serve(f.request(method, target, form))
}

// api performs a JSON request; body may be nil
func (f *fixture) api(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: f.sid})
	return f.serve(req)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// flashed returns the notice a redirect carries, or nil
func flashed(t *testing.T, w *httptest.ResponseRecorder) *view.Notice {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name != NoticeCookie || ck.Value == "" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
		require.NoError(t, err)
		var n view.Notice
		require.NoError(t, json.Unmarshal(raw, &n))
		return &n
	}
	return nil
}
