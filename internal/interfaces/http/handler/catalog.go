package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	catalogapp "github.com/gamestore/storefront/internal/application/catalog"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
)

// FavoritesPath is the favorites page
const FavoritesPath = "/favoritos"

// CatalogHandler serves the product listings and the favorites
type CatalogHandler struct {
	BaseHandler
	pages   *Pages
	catalog *catalogapp.Service
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(pages *Pages, catalog *catalogapp.Service) *CatalogHandler {
	return &CatalogHandler{
		pages:   pages,
		catalog: catalog,
	}
}

// Products lists the products, filtered by the categoria_id query parameter
// or by the categoria name
func (h *CatalogHandler) Products(c *gin.Context) {
	ctx := c.Request.Context()
	category := c.Query("categoria")
	categoryID, _ := strconv.ParseInt(c.Query("categoria_id"), 10, 64)

	var products []catalogapp.Product
	var err error
	if categoryID > 0 {
		products, err = h.catalog.ProductsByCategory(ctx, categoryID)
	} else {
		products, err = h.catalog.Products(ctx, category)
	}
	if middleware.WantsJSON(c) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, products)
		return
	}

	page := view.ProductsPage{
		Layout:     h.pages.Layout(c, "Productos"),
		Heading:    "Productos",
		Category:   category,
		CategoryID: categoryID,
		Products:   products,
	}
	if category != "" {
		page.Heading = category
	}
	if err != nil {
		page.Error = err.Error()
	}
	// the page still lists products when the categories are unavailable
	page.Categories, _ = h.catalog.Categories(ctx)
	for _, cat := range page.Categories {
		if cat.ID == categoryID {
			page.Heading = cat.Nombre
			page.Category = cat.Nombre
		}
	}
	if page.User != nil {
		h.catalog.MarkFavorites(ctx, page.Products)
	}

	h.pages.Render(c, http.StatusOK, view.PageProducts, page)
}

// Favorites lists the shopper's favorites
func (h *CatalogHandler) Favorites(c *gin.Context) {
	favorites, err := h.catalog.Favorites(c.Request.Context())
	if middleware.WantsJSON(c) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, favorites)
		return
	}
	if errors.Is(err, shared.ErrUnauthorized) {
		c.Redirect(http.StatusFound, middleware.LoginPath+"?next="+url.QueryEscape(FavoritesPath))
		return
	}

	page := view.FavoritesPage{
		Layout:    h.pages.Layout(c, "Mis Favoritos"),
		Favorites: favorites,
	}
	if err != nil {
		page.Error = err.Error()
	}
	h.pages.Render(c, http.StatusOK, view.PageFavorites, page)
}

// AddFavorite marks a product as favorite
func (h *CatalogHandler) AddFavorite(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, "", err)
		return
	}
	msg, err := h.catalog.AddFavorite(c.Request.Context(), id)
	h.respond(c, msg, err)
}

// RemoveFavorite unmarks a product
func (h *CatalogHandler) RemoveFavorite(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respond(c, "", err)
		return
	}
	msg, err := h.catalog.RemoveFavorite(c.Request.Context(), id)
	h.respond(c, msg, err)
}

func (h *CatalogHandler) respond(c *gin.Context, msg string, err error) {
	if middleware.WantsJSON(c) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Message(c, nil, msg)
		return
	}
	if err != nil {
		h.pages.Redirect(c, refererOr(c, FavoritesPath), failure(err))
		return
	}
	h.pages.Redirect(c, refererOr(c, FavoritesPath), success(msg))
}
