package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/cache"
	"github.com/gamestore/storefront/internal/infrastructure/config"
)

const countChannel = "storefront:cart:count"

// cartBackend serves the cart endpoints for a single shopper
type cartBackend struct {
	mu    sync.Mutex
	lines []cart.Line
}

func (b *cartBackend) snapshot() cart.Snapshot {
	snap := cart.Snapshot{Items: append([]cart.Line(nil), b.lines...), Subtotal: decimal.Zero}
	for _, l := range b.lines {
		snap.Subtotal = snap.Subtotal.Add(l.Total)
	}
	snap.Total = snap.Subtotal
	snap.Count = len(b.lines)
	return snap
}

func (b *cartBackend) serve(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET "+backend.PathCartDetails, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		reply(w, map[string]any{"success": true, "carrito": b.snapshot()})
	})
	mux.HandleFunc("GET "+backend.PathCartCount, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		reply(w, map[string]any{"count": len(b.lines)})
	})
	mux.HandleFunc("POST "+backend.PathCartAdd, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductoID int64 `json:"producto_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		price := decimal.RequireFromString("59.99")

		b.mu.Lock()
		b.lines = append(b.lines, cart.Line{
			ID: int64(len(b.lines) + 1), ProductoID: body.ProductoID, Nombre: "Zelda",
			PrecioUnitario: price, Cantidad: 1, Stock: 5, Total: price,
		})
		b.mu.Unlock()
		reply(w, map[string]any{"success": true, "message": "Producto agregado al carrito"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

// newInstance builds one storefront instance on the shared Redis
func newInstance(t *testing.T, mr *miniredis.Miniredis, backendURL string) *App {
	t.Helper()

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	stores, err := cache.NewStoreFactory(config.RedisConfig{
		Enabled:     true,
		Host:        mr.Host(),
		Port:        port,
		SnapshotTTL: time.Hour,
	}, config.SyncConfig{
		Channel:     countChannel,
		SentinelKey: "carritoUpdate",
		SentinelTTL: 100 * time.Millisecond,
	}, cache.WithInMemoryFallback(false)).CreateStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	client, err := backend.New(backend.Config{BaseURL: backendURL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	app, err := New(Deps{
		Backend:    client,
		Store:      stores.Snapshots,
		Signal:     stores.Signal,
		Claims:     stores.Claims,
		MaxWidgets: 10,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return app
}

func TestNew_IncompleteDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestApp_BadgeFollowsCartAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	url := (&cartBackend{}).serve(t)
	a := newInstance(t, mr, url)
	b := newInstance(t, mr, url)

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	go func() { _ = b.Badges.Run(ctx) }()

	subs := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = subs.Close() })
	require.Eventually(t, func() bool {
		n, err := subs.PubSubNumSub(context.Background(), countChannel).Result()
		return err == nil && n[countChannel] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// a tab served by instance b
	widget, err := b.Badges.Register("sid-1")
	require.NoError(t, err)
	t.Cleanup(func() { b.Badges.Unregister(widget) })

	// the shopper adds a product through instance a
	res, err := a.Cart.AddProduct(t.Context(), "sid-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshot.Count)

	select {
	case state := <-widget.Updates():
		assert.Equal(t, 1, state.Count)
		assert.Equal(t, "1", state.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("instance b never showed the new count")
	}
	assert.Equal(t, 1, b.Badges.Current("sid-1").Count)

	// the snapshot written by a is visible to b
	snap := b.Cart.Snapshot(t.Context(), "sid-1")
	assert.Equal(t, 1, snap.Count)
}
