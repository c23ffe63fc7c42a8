package admin

import (
	"github.com/shopspring/decimal"
)

// Order states accepted by the backend
const (
	OrderPending    = "pendiente"
	OrderProcessing = "procesando"
	OrderCompleted  = "completado"
	OrderCancelled  = "cancelado"
)

// OrderStates lists the states an order can be moved to
var OrderStates = []string{OrderPending, OrderProcessing, OrderCompleted, OrderCancelled}

// Product is an inventory row
type Product struct {
	ID            int64           `json:"id"`
	Nombre        string          `json:"nombre"`
	Descripcion   string          `json:"descripcion"`
	Precio        decimal.Decimal `json:"precio"`
	Stock         int             `json:"stock"`
	Imagen        string          `json:"imagen"`
	Categoria     string          `json:"categoria"`
	CategoriaID   int64           `json:"categoria_id"`
	Activo        bool            `json:"activo"`
	FechaCreacion string          `json:"fecha_creacion"`
}

// ProductInput creates or edits a product
type ProductInput struct {
	ID          int64           `json:"id,omitempty"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Imagen      string          `json:"imagen"`
	CategoriaID int64           `json:"categoria_id"`
	Activo      bool            `json:"activo"`
}

// ProductFilter narrows the inventory listing
type ProductFilter struct {
	Search     string
	CategoryID string
	Estado     string // activo | inactivo
}

// OrderItem is one line of an order
type OrderItem struct {
	ProductoID     int64           `json:"producto_id,omitempty"`
	ProductoNombre string          `json:"producto_nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Total          decimal.Decimal `json:"total,omitempty"`
	TotalItem      decimal.Decimal `json:"total_item,omitempty"`
	Imagen         string          `json:"imagen,omitempty"`
}

// Order is an order row in the admin listing
type Order struct {
	ID             int64           `json:"id_pedido"`
	NumeroPedido   string          `json:"numero_pedido"`
	ClienteNombre  string          `json:"cliente_nombre"`
	ClienteEmail   string          `json:"cliente_email"`
	Productos      []OrderItem     `json:"productos"`
	CantidadTotal  int             `json:"cantidad_total"`
	TotalPedido    decimal.Decimal `json:"total_pedido"`
	Estado         string          `json:"estado"`
	FechaPedido    string          `json:"fecha_pedido"`
	DireccionEnvio string          `json:"direccion_envio"`
}

// Customer is the buyer of an order
type Customer struct {
	ID       int64  `json:"id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

// OrderDetail is a single order with its items
type OrderDetail struct {
	ID             int64           `json:"id_pedido"`
	NumeroPedido   string          `json:"numero_pedido"`
	Cliente        Customer        `json:"cliente"`
	FechaPedido    string          `json:"fecha_pedido"`
	Total          decimal.Decimal `json:"total"`
	Estado         string          `json:"estado"`
	DireccionEnvio string          `json:"direccion_envio"`
	Items          []OrderItem     `json:"items"`
}

// OrderFilter narrows the order listing
type OrderFilter struct {
	Search      string
	Estado      string
	FechaInicio string
	FechaFin    string
}

// User is an account row
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Rol           string `json:"rol"`
	RolID         int64  `json:"rol_id"`
	Activo        bool   `json:"activo"`
	FechaRegistro string `json:"fecha_registro"`
	UltimoLogin   string `json:"ultimo_login"`
}

// UserInput creates or edits an account. Password is only sent when set.
type UserInput struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	RolID    int64  `json:"rol_id"`
	Activo   bool   `json:"activo"`
}

// UserFilter narrows the user listing
type UserFilter struct {
	Search string
	RolID  string
	Estado string
}

// Role is an account role
type Role struct {
	ID     int64  `json:"id_rol"`
	Nombre string `json:"nombre"`
}

// Summary holds the dashboard counters
type Summary struct {
	DailySales      decimal.Decimal `json:"daily_sales"`
	PendingOrders   int             `json:"pending_orders"`
	LowStock        int             `json:"low_stock"`
	ActiveCustomers int             `json:"active_customers"`
}

// Chart is a labelled series
type Chart struct {
	Labels []string          `json:"labels"`
	Data   []decimal.Decimal `json:"data"`
}

// RecentOrder is a dashboard order row
type RecentOrder struct {
	NumeroPedido string          `json:"numero_pedido"`
	Cliente      string          `json:"cliente"`
	Productos    string          `json:"productos"`
	Total        decimal.Decimal `json:"total"`
	Estado       string          `json:"estado"`
	EstadoLabel  string          `json:"estado_label"`
	Fecha        string          `json:"fecha"`
}

// Dashboard is everything the dashboard page shows
type Dashboard struct {
	Summary      Summary
	Sales        Chart
	TopProducts  Chart
	RecentOrders []RecentOrder
	// Errors holds the message of each panel that failed, by panel name
	Errors map[string]string
}
