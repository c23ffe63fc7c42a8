package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.backend.setUser(&backend.User{ID: 1, Username: "root", Role: 1})
	return f
}

func TestAdminHandler_Guard(t *testing.T) {
	t.Run("sends guests to the login page", func(t *testing.T) {
		f := newFixture(t)

		w := f.page(http.MethodGet, AdminInventoryPath, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Fadmin%2Finventario", w.Header().Get("Location"))
	})

	t.Run("forbids shoppers", func(t *testing.T) {
		f := newFixture(t)
		f.backend.setUser(&backend.User{ID: 7, Username: "ana", Role: 2})

		w := f.api(http.MethodGet, AdminInventoryPath, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeForbidden, decode[any](t, w).Code)
	})
}

func TestAdminHandler_Pages(t *testing.T) {
	f := adminFixture(t)

	for _, path := range []string{AdminPath, AdminInventoryPath, AdminOrdersPath + "/9"} {
		t.Run(path, func(t *testing.T) {
			w := f.page(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "root")
		})
	}
}

func TestAdminHandler_AddProduct(t *testing.T) {
	t.Run("posts the form to the backend", func(t *testing.T) {
		f := adminFixture(t)

		w := f.page(http.MethodPost, AdminInventoryPath, url.Values{
			"nombre":       {"Celeste"},
			"precio":       {"19.99"},
			"stock":        {"12"},
			"categoria_id": {"1"},
			"activo":       {"true"},
		})

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, AdminInventoryPath, w.Header().Get("Location"))
		notice := flashed(t, w)
		require.NotNil(t, notice)
		assert.Equal(t, view.NoticeSuccess, notice.Kind)
		assert.Equal(t, "Operación realizada", notice.Message)

		call, ok := f.backend.call(http.MethodPost, backend.PathAdminProductAdd)
		require.True(t, ok)
		assert.Equal(t, "Celeste", call.Body["nombre"])
		assert.Equal(t, "19.99", call.Body["precio"])
		assert.EqualValues(t, 12, call.Body["stock"])
		assert.Equal(t, true, call.Body["activo"])
	})

	t.Run("rejects a malformed price", func(t *testing.T) {
		f := adminFixture(t)

		w := f.page(http.MethodPost, AdminInventoryPath, url.Values{
			"nombre": {"Celeste"},
			"precio": {"diecinueve"},
		})

		require.Equal(t, http.StatusSeeOther, w.Code)
		notice := flashed(t, w)
		require.NotNil(t, notice)
		assert.Equal(t, view.NoticeError, notice.Kind)
		assert.Equal(t, "Precio inválido", notice.Message)
		_, called := f.backend.call(http.MethodPost, backend.PathAdminProductAdd)
		assert.False(t, called)
	})
}

func TestAdminHandler_EditProduct(t *testing.T) {
	f := adminFixture(t)

	w := f.api(http.MethodPost, AdminInventoryPath+"/5", map[string]any{
		"nombre": "Celeste",
		"precio": "17.50",
		"stock":  3,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Operación realizada", decode[any](t, w).Message)
	call, ok := f.backend.call(http.MethodPut, backend.PathAdminProductEdit)
	require.True(t, ok)
	assert.EqualValues(t, 5, call.Body["id"])
	assert.Equal(t, "17.5", call.Body["precio"])
}

func TestAdminHandler_DeleteProduct(t *testing.T) {
	f := adminFixture(t)

	w := f.page(http.MethodPost, AdminInventoryPath+"/5/eliminar", url.Values{})

	require.Equal(t, http.StatusSeeOther, w.Code)
	_, ok := f.backend.call(http.MethodDelete, "/api/admin/productos/eliminar/5")
	assert.True(t, ok)
}

func TestAdminHandler_SetOrderState(t *testing.T) {
	tests := []struct {
		name    string
		estado  string
		kind    view.NoticeKind
		message string
		sent    bool
	}{
		{"known state", "procesando", view.NoticeSuccess, "Operación realizada", true},
		{"unknown state", "perdido", view.NoticeError, "Estado no válido", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := adminFixture(t)

			w := f.page(http.MethodPost, AdminOrdersPath+"/9/estado", url.Values{"estado": {tt.estado}})

			require.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, AdminOrdersPath+"/9", w.Header().Get("Location"))
			notice := flashed(t, w)
			require.NotNil(t, notice)
			assert.Equal(t, tt.kind, notice.Kind)
			assert.Equal(t, tt.message, notice.Message)
			call, sent := f.backend.call(http.MethodPut, backend.PathAdminOrderState)
			assert.Equal(t, tt.sent, sent)
			if sent {
				assert.EqualValues(t, 9, call.Body["pedido_id"])
				assert.Equal(t, tt.estado, call.Body["estado"])
			}
		})
	}
}

func TestAdminHandler_Users(t *testing.T) {
	t.Run("a new account needs a password", func(t *testing.T) {
		f := adminFixture(t)

		w := f.api(http.MethodPost, AdminUsersPath, map[string]any{
			"username": "nuevo",
			"email":    "nuevo@example.com",
			"rol_id":   2,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "La contraseña es obligatoria", decode[any](t, w).Error)
	})

	t.Run("the form is validated", func(t *testing.T) {
		f := adminFixture(t)

		w := f.page(http.MethodPost, AdminUsersPath, url.Values{
			"username": {"nu"},
			"email":    {"no-es-correo"},
			"rol_id":   {"2"},
		})

		require.Equal(t, http.StatusSeeOther, w.Code)
		notice := flashed(t, w)
		require.NotNil(t, notice)
		assert.Equal(t, "Datos de usuario inválidos", notice.Message)
	})

	t.Run("deletes an account", func(t *testing.T) {
		f := adminFixture(t)

		w := f.page(http.MethodPost, AdminUsersPath+"/4/eliminar", url.Values{})

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, AdminUsersPath, w.Header().Get("Location"))
		_, ok := f.backend.call(http.MethodDelete, "/api/admin/usuarios/eliminar/4")
		assert.True(t, ok)
	})
}
