// Package catalog lists products and manages the shopper's favorites.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Success notices
const (
	NoticeFavoriteAdded   = "Producto agregado a favoritos"
	NoticeFavoriteRemoved = "Producto eliminado de favoritos"
)

// Backend is the part of the REST backend the catalog depends on
type Backend interface {
	Fetch(ctx context.Context, path string, query url.Values, key string) (json.RawMessage, error)
	Send(ctx context.Context, method, path string, body any) (string, error)
	UserInfo(ctx context.Context) (*backend.User, error)
}

// Service handles catalog reads and favorite mutations
type Service struct {
	backend Backend
	logger  *zap.Logger
}

// NewService creates a new catalog Service
func NewService(b Backend, log *zap.Logger) *Service {
	return &Service{
		backend: b,
		logger:  log,
	}
}

// Products lists the active products, optionally restricted to a category
// name (e.g. "Juegos"). An empty name lists everything.
func (s *Service) Products(ctx context.Context, category string) ([]Product, error) {
	var query url.Values
	if category = strings.TrimSpace(category); category != "" {
		query = url.Values{"categoria": {category}}
	}
	return fetch[[]Product](ctx, s.backend, backend.PathProducts, query, "productos")
}

// ProductsByCategory lists the products of a category id
func (s *Service) ProductsByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	return fetch[[]Product](ctx, s.backend, backend.PathWithID(backend.PathProductsByCategory, categoryID), nil, "productos")
}

// Categories lists the product categories
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return fetch[[]Category](ctx, s.backend, backend.PathCategories, nil, "categorias")
}

// Favorites lists the shopper's favorites. Requires a logged-in shopper.
func (s *Service) Favorites(ctx context.Context) ([]Favorite, error) {
	favorites, err := fetch[[]Favorite](ctx, s.backend, backend.PathFavorites, nil, "favoritos")
	for i := range favorites {
		favorites[i].Producto.Favorito = true
	}
	return favorites, err
}

// IsFavorite reports whether a product is among the shopper's favorites
func (s *Service) IsFavorite(ctx context.Context, productID int64) (bool, error) {
	return fetch[bool](ctx, s.backend, backend.PathWithID(backend.PathFavoriteCheck, productID), nil, "es_favorito")
}

// MarkFavorites sets Favorito on the products the shopper already marked.
// Markers are decoration: the first failed check leaves the rest unmarked.
func (s *Service) MarkFavorites(ctx context.Context, products []Product) {
	for i := range products {
		ok, err := s.IsFavorite(ctx, products[i].ID)
		if err != nil {
			s.logger.Debug("Favorite markers unavailable", zap.Int64("producto_id", products[i].ID), zap.Error(err))
			return
		}
		products[i].Favorito = ok
	}
}

// AddFavorite marks a product as favorite and returns the notice to show
func (s *Service) AddFavorite(ctx context.Context, productID int64) (string, error) {
	msg, err := s.backend.Send(ctx, http.MethodPost, backend.PathFavoriteAdd, map[string]any{"producto_id": productID})
	if err != nil {
		logger.L(ctx).Info("Favorite not added", zap.Int64("producto_id", productID), zap.Error(err))
		return "", backend.UserError(err)
	}
	return orDefault(msg, NoticeFavoriteAdded), nil
}

// RemoveFavorite unmarks a product and returns the notice to show
func (s *Service) RemoveFavorite(ctx context.Context, productID int64) (string, error) {
	msg, err := s.backend.Send(ctx, http.MethodDelete, backend.PathWithID(backend.PathFavoriteRemove, productID), nil)
	if err != nil {
		logger.L(ctx).Info("Favorite not removed", zap.Int64("producto_id", productID), zap.Error(err))
		return "", backend.UserError(err)
	}
	return orDefault(msg, NoticeFavoriteRemoved), nil
}

// CurrentUser returns the logged-in user, or nil for guests. The user menu
// must render even when the backend is down, so failures yield a guest.
func (s *Service) CurrentUser(ctx context.Context) *backend.User {
	user, err := s.backend.UserInfo(ctx)
	if err != nil {
		s.logger.Debug("User info unavailable, rendering as guest", zap.Error(err))
		return nil
	}
	return user
}

func fetch[T any](ctx context.Context, b Backend, path string, query url.Values, key string) (T, error) {
	var out T
	raw, err := b.Fetch(ctx, path, query, key)
	if err != nil {
		logger.L(ctx).Warn("Catalog request failed", zap.String("path", path), zap.Error(err))
		return out, backend.UserError(err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.L(ctx).Warn("Catalog payload could not be decoded",
			zap.String("path", path),
			zap.Error(fmt.Errorf("%w: %v", backend.ErrMalformedResponse, err)))
		return out, backend.UserError(err)
	}
	return out, nil
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
