// Package cart holds the storefront's view of a shopper's cart.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one product entry of the cart as reported by the backend.
// Total is PrecioUnitario x Cantidad as computed by the backend.
type Line struct {
	ID             int64           `json:"id"`
	ProductoID     int64           `json:"producto_id,omitempty"`
	Nombre         string          `json:"nombre"`
	Imagen         string          `json:"imagen"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Cantidad       int             `json:"cantidad"`
	Stock          int             `json:"stock"`
	Total          decimal.Decimal `json:"total"`
}

// CanIncrement reports whether another unit may be requested for the line.
func (l Line) CanIncrement() bool {
	return l.Cantidad < l.Stock
}

// CanDecrement reports whether the line can go down one unit without reaching zero.
func (l Line) CanDecrement() bool {
	return l.Cantidad > 1
}

// Snapshot is the last cart state fetched from the backend.
// A snapshot is replaced wholesale, never edited in place.
type Snapshot struct {
	Items    []Line          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

var (
	ErrNegativeSubtotal = errors.New("cart: subtotal is negative")
	ErrTotalBelowSub    = errors.New("cart: total is below subtotal")
	ErrCountMismatch    = errors.New("cart: count does not match line quantities")
)

// Empty returns the snapshot used whenever the cart cannot be loaded.
func Empty() Snapshot {
	return Snapshot{
		Items:    []Line{},
		Subtotal: decimal.Zero,
		Total:    decimal.Zero,
		Count:    0,
	}
}

// IsEmpty reports whether the cart has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// Units sums the quantities of every line.
func (s Snapshot) Units() int {
	n := 0
	for _, l := range s.Items {
		n += l.Cantidad
	}
	return n
}

// Line returns the line with the given id.
func (s Snapshot) Line(id int64) (Line, bool) {
	for _, l := range s.Items {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Normalize makes Count agree with the line quantities and guarantees a
// non-nil Items slice. The backend reports the number of distinct lines
// as its count; the storefront badge shows units.
func (s Snapshot) Normalize() Snapshot {
	out := s
	if out.Items == nil {
		out.Items = []Line{}
	} else {
		out.Items = append([]Line(nil), s.Items...)
	}
	out.Count = out.Units()
	return out
}

// Validate checks the snapshot invariants.
func (s Snapshot) Validate() error {
	if s.Subtotal.IsNegative() {
		return ErrNegativeSubtotal
	}
	if s.Total.LessThan(s.Subtotal) {
		return fmt.Errorf("%w: total %s, subtotal %s", ErrTotalBelowSub, s.Total.StringFixed(2), s.Subtotal.StringFixed(2))
	}
	if s.Count != s.Units() {
		return fmt.Errorf("%w: count %d, units %d", ErrCountMismatch, s.Count, s.Units())
	}
	if (len(s.Items) == 0) != (s.Count == 0) {
		return ErrCountMismatch
	}
	return nil
}
