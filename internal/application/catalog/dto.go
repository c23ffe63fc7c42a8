package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog product as listed by the backend
type Product struct {
	ID          int64           `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Imagen      string          `json:"imagen"`
	Categoria   string          `json:"categoria,omitempty"`
	CategoriaID int64           `json:"categoria_id"`
	// Favorito is set by MarkFavorites, never by the backend listing
	Favorito bool `json:"es_favorito,omitempty"`
}

// InStock reports whether the product can be added to the cart
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Category is a product category
type Category struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

// Favorite is a product the shopper marked as favorite
type Favorite struct {
	ID            int64   `json:"id"`
	FechaAgregado string  `json:"fecha_agregado"`
	Producto      Product `json:"producto"`
}
