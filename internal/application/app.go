// Package application assembles the storefront services into one App.
//
// The App is built once at startup and handed to whichever component needs
// to call across modules, such as checkout reloading the cart and notifying
// the badge broadcaster.
package application

import (
	"context"
	"errors"

	adminapp "github.com/gamestore/storefront/internal/application/admin"
	badgeapp "github.com/gamestore/storefront/internal/application/badge"
	cartapp "github.com/gamestore/storefront/internal/application/cart"
	catalogapp "github.com/gamestore/storefront/internal/application/catalog"
	checkoutapp "github.com/gamestore/storefront/internal/application/checkout"
	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Deps are the infrastructure pieces the App is built from
type Deps struct {
	Backend *backend.Client
	Store   cart.SnapshotStore
	Signal  badge.CountSignal
	// Claims guards PayPal captures; nil disables the guard
	Claims shared.IdempotencyStore
	// PayPal and Ready are both nil when PayPal is not configured
	PayPal     checkoutapp.PayPalGateway
	Ready      checkoutapp.Readiness
	URLs       checkoutapp.URLs
	MaxWidgets int
	Metrics    *telemetry.Metrics
	Logger     *zap.Logger
}

// App holds the storefront services
type App struct {
	Backend  *backend.Client
	Cart     *cartapp.Service
	Badges   *badgeapp.Broadcaster
	Checkout *checkoutapp.Orchestrator
	Catalog  *catalogapp.Service
	Admin    *adminapp.Service
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger
}

// New builds the App
func New(d Deps) (*App, error) {
	if d.Backend == nil || d.Store == nil || d.Signal == nil {
		return nil, errors.New("application: incomplete dependencies")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	app := &App{
		Backend: d.Backend,
		Metrics: d.Metrics,
		Logger:  d.Logger,
	}

	// The broadcaster asks the cart for counts and the cart notifies the
	// broadcaster, so the source resolves the cart lazily.
	source := badgeapp.CountSourceFunc(func(ctx context.Context, sessionID string) (int, error) {
		return app.Cart.Count(ctx, sessionID)
	})
	app.Badges = badgeapp.NewBroadcaster(d.Signal, source, d.Logger.Named("badge"),
		badgeapp.WithMaxWidgets(d.MaxWidgets),
		badgeapp.WithMetrics(d.Metrics))
	app.Cart = cartapp.NewService(d.Backend, d.Store, app.Badges, d.Logger.Named("cart"),
		cartapp.WithMetrics(d.Metrics))

	opts := []checkoutapp.Option{checkoutapp.WithMetrics(d.Metrics)}
	if d.Claims != nil {
		opts = append(opts, checkoutapp.WithCaptureClaims(d.Claims))
	}
	if d.PayPal != nil && d.Ready != nil {
		opts = append(opts, checkoutapp.WithPayPal(d.PayPal, d.Ready))
	}
	app.Checkout = checkoutapp.NewOrchestrator(d.Backend, app.Cart, app.Badges, d.URLs, d.Logger.Named("checkout"), opts...)

	app.Catalog = catalogapp.NewService(d.Backend, d.Logger.Named("catalog"))
	app.Admin = adminapp.NewService(d.Backend, d.Logger.Named("admin"))
	return app, nil
}
