package view

import (
	"github.com/gamestore/storefront/internal/application/admin"
	"github.com/gamestore/storefront/internal/application/catalog"
	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/domain/cart"
)

// NoticeKind selects the colour and icon of a notice
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
)

var noticeIcons = map[NoticeKind]string{
	NoticeSuccess: "check",
	NoticeError:   "exclamation-triangle",
	NoticeWarning: "exclamation",
	NoticeInfo:    "info",
}

// Notice is a transient message shown once at the top of a page
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// User is the account shown in the user menu
type User struct {
	Username string
	Admin    bool
}

// Layout is the data every page shares
type Layout struct {
	Title  string
	User   *User
	Badge  badge.State
	Notice *Notice
}

// PanelState is one payment method panel of the payment view.
// Exactly one of Error, ActionURL or CheckoutURL drives what is shown.
type PanelState struct {
	Error       string
	ActionURL   string // form target that starts the provider flow
	CheckoutURL string // external page the button redirects to
	RetryURL    string
	PedidoID    string
	Synthetic   bool
}

// PaymentView is the payment variant of the cart page
type PaymentView struct {
	PayPal      PanelState
	MercadoPago PanelState
}

// CartPage renders one of three variants: empty cart, item list or payment view
type CartPage struct {
	Layout
	Snapshot cart.Snapshot
	Payment  *PaymentView
	// ConfirmRemove asks the shopper to confirm deleting this line
	ConfirmRemove *cart.Line
}

// ProductsPage lists catalog products
type ProductsPage struct {
	Layout
	Heading    string
	Category   string
	CategoryID int64
	Categories []catalog.Category
	Products   []catalog.Product
	Error      string
}

// FavoritesPage lists the shopper's favorites
type FavoritesPage struct {
	Layout
	Favorites []catalog.Favorite
	Error     string
}

// ResultPage is shown when a payment attempt ends
type ResultPage struct {
	Layout
	Heading  string
	Message  string
	PedidoID string
	OrderID  string
	Success  bool
}

// ErrorPage is the fallback page for failures outside any panel
type ErrorPage struct {
	Layout
	Status  int
	Message string
}

// DashboardPage is the admin dashboard
type DashboardPage struct {
	Layout
	Period    string
	Dashboard admin.Dashboard
}

// InventoryPage lists products for administration
type InventoryPage struct {
	Layout
	Filter     admin.ProductFilter
	Categories []catalog.Category
	Products   []admin.Product
	Error      string
}

// OrdersPage lists orders for administration
type OrdersPage struct {
	Layout
	Filter admin.OrderFilter
	States []string
	Orders []admin.Order
	Error  string
}

// OrderPage shows a single order
type OrderPage struct {
	Layout
	States []string
	Order  admin.OrderDetail
	Error  string
}

// UsersPage lists accounts for administration
type UsersPage struct {
	Layout
	Filter admin.UserFilter
	Roles  []admin.Role
	Users  []admin.User
	Error  string
}
