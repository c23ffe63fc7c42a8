package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/gamestore/storefront/docs"
	"github.com/gamestore/storefront/internal/application"
	checkoutapp "github.com/gamestore/storefront/internal/application/checkout"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/cache"
	"github.com/gamestore/storefront/internal/infrastructure/config"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"github.com/gamestore/storefront/internal/infrastructure/payment"
	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"github.com/gamestore/storefront/internal/interfaces/http/handler"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/router"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			GameStore Storefront
//	@version		1.0
//	@description	Cart, checkout and badge endpoints of the GameStore storefront.
//	@BasePath		/

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting GameStore storefront",
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(metricsNamespace(cfg.App.Name))
	}

	// Backend client
	backendClient, err := backend.New(backend.Config{
		BaseURL:         cfg.Backend.BaseURL,
		Timeout:         cfg.Backend.Timeout,
		BreakerFailures: cfg.Backend.BreakerFailures,
		BreakerTimeout:  cfg.Backend.BreakerTimeout,
	}, backend.WithLogger(log.Named("backend")))
	if err != nil {
		log.Fatal("Failed to create backend client", zap.Error(err))
	}

	// Cart snapshots, badge count signal and payment claims
	stores, err := cache.NewStoreFactory(cfg.Redis, cfg.Sync,
		cache.WithLogger(log.Named("stores")),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStores()
	if err != nil {
		log.Fatal("Failed to create stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()

	deps := application.Deps{
		Backend: backendClient,
		Store:   stores.Snapshots,
		Signal:  stores.Signal,
		Claims:  stores.Claims,
		URLs: checkoutapp.URLs{
			PayPalReturn: absoluteURL(cfg.App.BaseURL, "/checkout/paypal/return"),
			PayPalCancel: absoluteURL(cfg.App.BaseURL, "/checkout/paypal/cancel"),
			Success:      cfg.MercadoPago.SuccessPath,
		},
		MaxWidgets: cfg.Sync.MaxStreams,
		Metrics:    metrics,
		Logger:     log,
	}

	// PayPal gateway, made ready in the background so the first checkout
	// does not pay for the token round trip
	if cfg.PayPal.ClientID != "" && cfg.PayPal.Secret != "" {
		paypalClient, err := payment.NewPayPalClient(&payment.PayPalConfig{
			ClientID:  cfg.PayPal.ClientID,
			Secret:    cfg.PayPal.Secret,
			IsSandbox: cfg.PayPal.Sandbox,
			Currency:  cfg.PayPal.Currency,
		})
		if err != nil {
			log.Fatal("Failed to create PayPal client", zap.Error(err))
		}
		loader := payment.NewLoader(paypalClient.Authenticate,
			cfg.PayPal.ReadyPollInterval, cfg.PayPal.ReadyPollAttempts, log.Named("paypal"))
		loader.Preload()
		deps.PayPal = paypalClient
		deps.Ready = loader
	} else {
		log.Warn("PayPal credentials not configured, PayPal checkout disabled")
	}

	app, err := application.New(deps)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	// Views and handlers
	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatal("Failed to parse templates", zap.Error(err))
	}
	pages := handler.NewPages(renderer, app.Catalog, app.Badges, log.Named("pages"),
		handler.WithSecureCookies(cfg.Session.Secure))

	handlers := router.Handlers{
		Cart:     handler.NewCartHandler(pages, app.Cart, app.Checkout),
		Checkout: handler.NewCheckoutHandler(pages, app.Cart, app.Checkout, app.Badges),
		Catalog:  handler.NewCatalogHandler(pages, app.Catalog),
		Admin:    handler.NewAdminHandler(pages, app.Admin, app.Catalog),
		System:   handler.NewSystemHandler(cfg.App.Name, version, app.Backend, app.Badges),
		Badge: handler.NewBadgeHandler(app.Badges,
			handler.WithBadgeLogger(log.Named("badge-stream")),
			handler.WithBadgeHeartbeat(cfg.Sync.HeartbeatInterval),
			handler.WithBadgeRefresh(cfg.Sync.RefreshInterval)),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies for X-Forwarded-For handling
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	// Recovery first so panics in any middleware are logged
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Session(middleware.SessionConfig{
		CookieName:    cfg.Session.CookieName,
		BackendCookie: cfg.Session.BackendCookie,
		Path:          cfg.Session.Path,
		Secure:        cfg.Session.Secure,
		MaxAge:        int(cfg.Session.MaxAge.Seconds()),
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Metrics(metrics))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.Session.Secure
	engine.Use(middleware.SecureWithConfig(security))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))

	engine.StaticFS("/static", view.Static())
	if metrics != nil {
		engine.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	limiter := middleware.NewRateLimiter(cfg.HTTP.CheckoutRateLimit, cfg.HTTP.CheckoutRateWindow)
	go limiter.Run(ctx)

	adminGuard := middleware.RequireAdmin(app.Backend)
	r := router.NewRouter(engine)
	r.Register(router.Docs(middleware.SwaggerConfig{
		Enabled:      cfg.Swagger.Enabled,
		RequireAdmin: cfg.Swagger.RequireAdmin,
		AllowedIPs:   cfg.Swagger.AllowedIPs,
	}, adminGuard))
	for _, group := range router.Storefront(handlers, router.Guards{
		Admin:    adminGuard,
		Checkout: middleware.RateLimitBySession(limiter),
	}, router.Paths{
		Success: cfg.MercadoPago.SuccessPath,
		Failure: cfg.MercadoPago.FailurePath,
	}) {
		r.Register(group)
	}
	r.Setup()
	log.Info("Routes registered", zap.Int("count", len(r.Routes())))
	for _, route := range r.Routes() {
		log.Debug("Route", zap.String("group", route.Group), zap.String("method", route.Method), zap.String("path", route.Path))
	}

	// Badge fan-out across storefront instances
	broadcastDone := make(chan struct{})
	go func() {
		defer close(broadcastDone)
		if err := app.Badges.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Badge broadcaster stopped", zap.Error(err))
		}
	}()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Badge streams end with the base context, so Shutdown does not wait on them
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	<-broadcastDone

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// absoluteURL joins the public base URL and a storefront path
func absoluteURL(base, path string) string {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return path
	}
	return u.String()
}

// metricsNamespace turns the app name into a valid Prometheus namespace
func metricsNamespace(name string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
}
