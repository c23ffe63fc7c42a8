package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend keeps a cart the way the REST backend does: lines keyed by
// product, quantity bounded by stock.
type fakeBackend struct {
	mu         sync.Mutex
	nextID     int64
	lines      []cart.Line
	products   map[int64]cart.Line
	calls      int
	countCalls int
	fail       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID: 100,
		products: map[int64]cart.Line{
			42: {ProductoID: 42, Nombre: "Zelda", Imagen: "zelda.png", PrecioUnitario: decimal.RequireFromString("59.99"), Stock: 3},
			7:  {ProductoID: 7, Nombre: "Mario Kart", Imagen: "mk.png", PrecioUnitario: decimal.RequireFromString("49.50"), Stock: 10},
		},
	}
}

func (f *fakeBackend) CartDetails(context.Context) (cart.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return cart.Snapshot{}, f.fail
	}
	snap := cart.Snapshot{Items: []cart.Line{}, Subtotal: decimal.Zero, Total: decimal.Zero}
	for _, l := range f.lines {
		l.Total = l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad)))
		snap.Items = append(snap.Items, l)
		snap.Subtotal = snap.Subtotal.Add(l.Total)
	}
	snap.Total = snap.Subtotal
	snap.Count = len(snap.Items) // the backend counts lines
	return snap, nil
}

func (f *fakeBackend) CartCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.fail != nil {
		return 0, f.fail
	}
	return len(f.lines), nil
}

func (f *fakeBackend) AddToCart(_ context.Context, productID int64, qty int) (backend.AddResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.products[productID]
	if !ok {
		return backend.AddResult{}, &backend.APIError{Status: http.StatusNotFound, Message: "Producto no encontrado"}
	}
	for i := range f.lines {
		if f.lines[i].ProductoID == productID {
			if f.lines[i].Cantidad+qty > p.Stock {
				return backend.AddResult{}, &backend.APIError{Status: http.StatusBadRequest, Message: "Stock insuficiente"}
			}
			f.lines[i].Cantidad += qty
			return backend.AddResult{Message: "Cantidad actualizada en el carrito", CarritoCount: len(f.lines)}, nil
		}
	}
	p.ID = f.nextID
	f.nextID++
	p.Cantidad = qty
	f.lines = append(f.lines, p)
	return backend.AddResult{Message: "Producto agregado al carrito", CarritoCount: len(f.lines)}, nil
}

func (f *fakeBackend) UpdateQuantity(_ context.Context, lineID int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i := range f.lines {
		if f.lines[i].ID != lineID {
			continue
		}
		if qty < 1 {
			return &backend.APIError{Status: http.StatusBadRequest, Message: "Cantidad inválida"}
		}
		if qty > f.lines[i].Stock {
			return &backend.APIError{Status: http.StatusBadRequest,
				Message: fmt.Sprintf("Stock insuficiente. Solo hay %d unidades disponibles", f.lines[i].Stock)}
		}
		f.lines[i].Cantidad = qty
		return nil
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: "Item no encontrado"}
}

func (f *fakeBackend) RemoveLine(_ context.Context, lineID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: "Item no encontrado"}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	counts []int
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, _ string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, count)
}

func (r *recordingBroadcaster) last() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.counts) == 0 {
		return -1
	}
	return r.counts[len(r.counts)-1]
}

func newTestService(t *testing.T, b Backend) (*Service, *recordingBroadcaster) {
	t.Helper()
	store := cache.NewInMemorySnapshotStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	rb := &recordingBroadcaster{}
	return NewService(b, store, rb, zap.NewNop()), rb
}

func TestRefresh_NormalizesCountToUnits(t *testing.T) {
	fb := newFakeBackend()
	svc, _ := newTestService(t, fb)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "s1", 7)
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "s1", 7)
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "s1", 42)
	require.NoError(t, err)

	snap := svc.Refresh(ctx, "s1")
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 3, snap.Count)
	assert.NoError(t, snap.Validate())
}

func TestAddProduct_TwiceIncrementsSameLine(t *testing.T) {
	fb := newFakeBackend()
	svc, rb := newTestService(t, fb)
	ctx := context.Background()

	first, err := svc.AddProduct(ctx, "s1", 42)
	require.NoError(t, err)
	assert.Equal(t, "Producto agregado al carrito", first.Message)

	second, err := svc.AddProduct(ctx, "s1", 42)
	require.NoError(t, err)
	require.Len(t, second.Snapshot.Items, 1)
	assert.Equal(t, 2, second.Snapshot.Items[0].Cantidad)
	assert.Equal(t, 2, rb.last())
}

func TestSetQuantity_RejectedAboveStock(t *testing.T) {
	fb := newFakeBackend()
	svc, rb := newTestService(t, fb)
	ctx := context.Background()

	added, err := svc.AddProduct(ctx, "s1", 42)
	require.NoError(t, err)
	lineID := added.Snapshot.Items[0].ID
	before := svc.Snapshot(ctx, "s1")
	broadcasts := len(rb.counts)

	_, err = svc.SetQuantity(ctx, "s1", lineID, 4)
	require.Error(t, err)
	assert.Equal(t, "Stock insuficiente. Solo hay 3 unidades disponibles", err.Error())
	assert.ErrorIs(t, err, shared.ErrRejected)

	assert.Equal(t, before, svc.Snapshot(ctx, "s1"), "snapshot is untouched on failure")
	assert.Len(t, rb.counts, broadcasts, "no broadcast on failure")
}

func TestStep_UsesStoredSnapshot(t *testing.T) {
	fb := newFakeBackend()
	svc, _ := newTestService(t, fb)
	ctx := context.Background()

	added, err := svc.AddProduct(ctx, "s1", 7)
	require.NoError(t, err)
	lineID := added.Snapshot.Items[0].ID

	res, err := svc.Step(ctx, "s1", lineID, +1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Snapshot.Items[0].Cantidad)

	res, err = svc.Step(ctx, "s1", lineID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Snapshot.Items[0].Cantidad)

	_, err = svc.Step(ctx, "s1", 999, +1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveLine_RequiresConfirmation(t *testing.T) {
	fb := newFakeBackend()
	svc, rb := newTestService(t, fb)
	ctx := context.Background()

	added, err := svc.AddProduct(ctx, "s1", 42)
	require.NoError(t, err)
	lineID := added.Snapshot.Items[0].ID
	calls := fb.calls

	_, err = svc.RemoveLine(ctx, "s1", lineID, false)
	assert.ErrorIs(t, err, shared.ErrConfirmationRequired)
	assert.Equal(t, calls, fb.calls, "nothing is sent without confirmation")

	res, err := svc.RemoveLine(ctx, "s1", lineID, true)
	require.NoError(t, err)
	assert.Equal(t, NoticeRemoved, res.Message)
	assert.True(t, res.Snapshot.IsEmpty())
	assert.Equal(t, 0, rb.last())
}

func TestRefresh_FailsSoftToEmptyCart(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transport", fmt.Errorf("%w: dial tcp", backend.ErrUnavailable)},
		{"application", &backend.APIError{Status: http.StatusOK, Message: "Usuario no autenticado"}},
		{"malformed", backend.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			svc, _ := newTestService(t, fb)
			ctx := context.Background()

			_, err := svc.AddProduct(ctx, "s1", 7)
			require.NoError(t, err)

			fb.fail = tt.err
			snap := svc.Refresh(ctx, "s1")
			assert.True(t, snap.IsEmpty())
			assert.Equal(t, 0, snap.Count)
			assert.Equal(t, "0.00", snap.Total.StringFixed(2))
			assert.True(t, svc.Snapshot(ctx, "s1").IsEmpty())
		})
	}
}

func TestRefresh_InvalidSnapshotIsTreatedAsMalformed(t *testing.T) {
	mb := new(MockBackend)
	mb.On("CartDetails", mock.Anything).Return(cart.Snapshot{
		Items:    []cart.Line{{ID: 1, Cantidad: 1, Stock: 1}},
		Subtotal: decimal.NewFromInt(10),
		Total:    decimal.NewFromInt(5),
	}, nil)

	svc, _ := newTestService(t, mb)
	snap := svc.Refresh(context.Background(), "s1")
	assert.True(t, snap.IsEmpty())
	mb.AssertExpectations(t)
}

func TestMutation_TransportFailureIsConnectionError(t *testing.T) {
	mb := new(MockBackend)
	mb.On("UpdateQuantity", mock.Anything, int64(5), 2).Return(fmt.Errorf("%w: connection refused", backend.ErrUnavailable))

	svc, rb := newTestService(t, mb)
	_, err := svc.SetQuantity(context.Background(), "s1", 5, 2)
	require.Error(t, err)
	assert.Equal(t, "Error de conexión", err.Error())
	assert.Empty(t, rb.counts)
	mb.AssertNotCalled(t, "CartDetails", mock.Anything)
}

func TestMutation_SameControlIsBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	mb := new(MockBackend)
	mb.On("UpdateQuantity", mock.Anything, int64(5), 2).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil).Once()
	mb.On("UpdateQuantity", mock.Anything, int64(6), 1).Return(nil).Once()
	mb.On("CartDetails", mock.Anything).Return(cart.Empty(), nil)

	svc, _ := newTestService(t, mb)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.SetQuantity(ctx, "s1", 5, 2)
		done <- err
	}()
	<-entered

	_, err := svc.SetQuantity(ctx, "s1", 5, 2)
	assert.ErrorIs(t, err, shared.ErrBusy)

	// another control of the same session is not serialized
	_, err = svc.SetQuantity(ctx, "s1", 6, 1)
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	mb.On("UpdateQuantity", mock.Anything, int64(5), 3).Return(nil).Once()
	_, err = svc.SetQuantity(ctx, "s1", 5, 3)
	assert.NoError(t, err, "control is released after the request ends")
	mb.AssertExpectations(t)
}

func TestAddProduct_UnknownProduct(t *testing.T) {
	fb := newFakeBackend()
	svc, _ := newTestService(t, fb)

	_, err := svc.AddProduct(context.Background(), "s1", 999)
	require.Error(t, err)
	assert.Equal(t, "Producto no encontrado", err.Error())

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "REJECTED", de.Code)
}

func TestCount_UsesSnapshotWhileLinesAgree(t *testing.T) {
	fb := newFakeBackend()
	svc, _ := newTestService(t, fb)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "s1", 7)
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "s1", 7)
	require.NoError(t, err)

	count, err := svc.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "units, not lines")

	// a line added elsewhere makes the stored snapshot stale
	fb.mu.Lock()
	fb.lines = append(fb.lines, cart.Line{ID: 1, ProductoID: 42, PrecioUnitario: decimal.NewFromInt(1), Cantidad: 3, Stock: 3})
	fb.mu.Unlock()

	count, err = svc.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, svc.Snapshot(ctx, "s1").Count)
}

func TestCount_BackendFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.fail = fmt.Errorf("%w: timeout", backend.ErrUnavailable)
	svc, _ := newTestService(t, fb)

	_, err := svc.Count(context.Background(), "s1")
	assert.ErrorIs(t, err, shared.ErrConnection)
}

// MockBackend is a mock implementation of Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CartDetails(ctx context.Context) (cart.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(cart.Snapshot), args.Error(1)
}

func (m *MockBackend) CartCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) AddToCart(ctx context.Context, productID int64, qty int) (backend.AddResult, error) {
	args := m.Called(ctx, productID, qty)
	return args.Get(0).(backend.AddResult), args.Error(1)
}

func (m *MockBackend) UpdateQuantity(ctx context.Context, lineID int64, qty int) error {
	args := m.Called(ctx, lineID, qty)
	return args.Error(0)
}

func (m *MockBackend) RemoveLine(ctx context.Context, lineID int64) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}
