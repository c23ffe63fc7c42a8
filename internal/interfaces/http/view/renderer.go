// Package view renders storefront pages with html/template.
//
// Rendering is a pure function of the page data: the same data always yields
// the same markup, so a page or fragment can be re-rendered after every
// mutation.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page template names
const (
	PageCart           = "cart"
	PageProducts       = "products"
	PageFavorites      = "favorites"
	PageResult         = "result"
	PageError          = "error"
	PageAdminDashboard = "admin_dashboard"
	PageAdminInventory = "admin_inventory"
	PageAdminOrders    = "admin_orders"
	PageAdminOrder     = "admin_order"
	PageAdminUsers     = "admin_users"
)

// Fragment names rendered without the layout
const (
	FragmentCart   = "cart_container"
	FragmentNotice = "notice"
)

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
)

// Renderer executes the embedded page templates
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded template. Each page is parsed into its
// own clone of the layout so pages can all define "content".
func NewRenderer() (*Renderer, error) {
	base, err := template.New("layout").Funcs(funcMap()).ParseFS(templateFS, layoutFile, partialsFile)
	if err != nil {
		return nil, fmt.Errorf("view: failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if file == layoutFile || file == partialsFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")

		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("view: failed to parse %s: %w", file, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

// Render writes a full page
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	return r.execute(w, page, "layout.html", data)
}

// Fragment writes a named block of a page without the layout
func (r *Renderer) Fragment(w io.Writer, page, fragment string, data any) error {
	return r.execute(w, page, fragment, data)
}

// Cart renders the cart page in the variant its data selects
func (r *Renderer) Cart(w io.Writer, data CartPage) error {
	return r.Render(w, PageCart, data)
}

// Static returns the stylesheets and scripts served under /static
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func (r *Renderer) execute(w io.Writer, page, name string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}
	// Render into a buffer so a failing template never sends half a page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("view: failed to render %s/%s: %w", page, name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
