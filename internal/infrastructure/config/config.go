package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all storefront configuration
type Config struct {
	App         AppConfig
	Backend     BackendConfig
	Redis       RedisConfig
	Session     SessionConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Sync        SyncConfig
	PayPal      PayPalConfig
	MercadoPago MercadoPagoConfig
	Telemetry   TelemetryConfig
	Metrics     MetricsConfig
	Swagger     SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	BaseURL string // public URL of the storefront, used to build payment return URLs
}

// BackendConfig holds settings for the REST backend the storefront renders
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	// Circuit breaker: consecutive transport failures before the breaker opens
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// RedisConfig holds Redis connection settings.
// When Enabled is false the snapshot store and the badge signal stay in process.
type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

// SessionConfig holds the storefront session cookie settings
type SessionConfig struct {
	CookieName    string
	BackendCookie string // name of the backend session cookie forwarded on every call
	Path          string
	Secure        bool
	MaxAge        time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
	TrustedProxies   []string
	MaxBodyBytes     int64
	// Checkout starts allowed per session within CheckoutRateWindow
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
}

// SyncConfig holds cart badge synchronisation settings
type SyncConfig struct {
	Channel           string        // Pub/Sub channel carrying count updates
	SentinelKey       string        // key prefix of the short-lived sentinel
	SentinelTTL       time.Duration // sentinel lifetime (100ms)
	RefreshInterval   time.Duration // periodic count resync per open stream (30s)
	HeartbeatInterval time.Duration
	MaxStreams        int
}

// PayPalConfig holds PayPal REST settings.
// ReadyPollAttempts x ReadyPollInterval is the readiness budget.
type PayPalConfig struct {
	ClientID          string
	Secret            string
	Sandbox           bool
	Currency          string
	ReadyPollInterval time.Duration
	ReadyPollAttempts int
}

// MercadoPagoConfig holds Mercado Pago return paths
type MercadoPagoConfig struct {
	SuccessPath string
	FailurePath string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled      bool     // Whether to enable Swagger endpoint
	RequireAdmin bool     // Only administrators may read the docs
	AllowedIPs   []string // IP whitelist (empty = allow all)
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_BACKEND_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Backend: BackendConfig{
			BaseURL:         v.GetString("backend.base_url"),
			Timeout:         v.GetDuration("backend.timeout"),
			BreakerFailures: v.GetUint32("backend.breaker_failures"),
			BreakerTimeout:  v.GetDuration("backend.breaker_timeout"),
		},
		Redis: RedisConfig{
			Enabled:     v.GetBool("redis.enabled"),
			Host:        v.GetString("redis.host"),
			Port:        v.GetInt("redis.port"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			SnapshotTTL: v.GetDuration("redis.snapshot_ttl"),
		},
		Session: SessionConfig{
			CookieName:    v.GetString("session.cookie_name"),
			BackendCookie: v.GetString("session.backend_cookie"),
			Path:          v.GetString("session.path"),
			Secure:        v.GetBool("session.secure"),
			MaxAge:        v.GetDuration("session.max_age"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),
			// Checkout throttling
			CheckoutRateLimit:  v.GetInt("http.checkout_rate_limit"),
			CheckoutRateWindow: v.GetDuration("http.checkout_rate_window"),
		},
		Sync: SyncConfig{
			Channel:           v.GetString("sync.channel"),
			SentinelKey:       v.GetString("sync.sentinel_key"),
			SentinelTTL:       v.GetDuration("sync.sentinel_ttl"),
			RefreshInterval:   v.GetDuration("sync.refresh_interval"),
			HeartbeatInterval: v.GetDuration("sync.heartbeat_interval"),
			MaxStreams:        v.GetInt("sync.max_streams"),
		},
		PayPal: PayPalConfig{
			ClientID:          v.GetString("paypal.client_id"),
			Secret:            v.GetString("paypal.secret"),
			Sandbox:           v.GetBool("paypal.sandbox"),
			Currency:          v.GetString("paypal.currency"),
			ReadyPollInterval: v.GetDuration("paypal.ready_poll_interval"),
			ReadyPollAttempts: v.GetInt("paypal.ready_poll_attempts"),
		},
		MercadoPago: MercadoPagoConfig{
			SuccessPath: v.GetString("mercadopago.success_path"),
			FailurePath: v.GetString("mercadopago.failure_path"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Swagger: SwaggerConfig{
			Enabled:      v.GetBool("swagger.enabled"),
			RequireAdmin: v.GetBool("swagger.require_admin"),
			AllowedIPs:   v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gamestore-storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Backend.BreakerFailures == 0 {
		cfg.Backend.BreakerFailures = 5
	}
	if cfg.Backend.BreakerTimeout == 0 {
		cfg.Backend.BreakerTimeout = 10 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = 24 * time.Hour
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "sf_sid"
	}
	if cfg.Session.BackendCookie == "" {
		cfg.Session.BackendCookie = "session"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "/"
	}
	if cfg.Session.MaxAge == 0 {
		cfg.Session.MaxAge = 30 * 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// SSE streams stay open, so writes are not bounded by default
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.CheckoutRateLimit == 0 {
		cfg.HTTP.CheckoutRateLimit = 10
	}
	if cfg.HTTP.CheckoutRateWindow == 0 {
		cfg.HTTP.CheckoutRateWindow = time.Minute
	}
	if cfg.Sync.Channel == "" {
		cfg.Sync.Channel = "storefront:cart:count"
	}
	if cfg.Sync.SentinelKey == "" {
		cfg.Sync.SentinelKey = "carritoUpdate"
	}
	if cfg.Sync.SentinelTTL == 0 {
		cfg.Sync.SentinelTTL = 100 * time.Millisecond
	}
	if cfg.Sync.RefreshInterval == 0 {
		cfg.Sync.RefreshInterval = 30 * time.Second
	}
	if cfg.Sync.HeartbeatInterval == 0 {
		cfg.Sync.HeartbeatInterval = 15 * time.Second
	}
	if cfg.Sync.MaxStreams == 0 {
		cfg.Sync.MaxStreams = 1000
	}
	if cfg.PayPal.Currency == "" {
		cfg.PayPal.Currency = "USD"
	}
	if cfg.PayPal.ReadyPollInterval == 0 {
		cfg.PayPal.ReadyPollInterval = 500 * time.Millisecond
	}
	if cfg.PayPal.ReadyPollAttempts == 0 {
		cfg.PayPal.ReadyPollAttempts = 40
	}
	if cfg.MercadoPago.SuccessPath == "" {
		cfg.MercadoPago.SuccessPath = "/pago-exitoso"
	}
	if cfg.MercadoPago.FailurePath == "" {
		cfg.MercadoPago.FailurePath = "/pago-cancelado"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if c.PayPal.ReadyPollAttempts < 0 || c.PayPal.ReadyPollInterval < 0 {
		return fmt.Errorf("paypal.ready_poll_interval and paypal.ready_poll_attempts cannot be negative")
	}
	if c.Sync.SentinelTTL < 0 {
		return fmt.Errorf("sync.sentinel_ttl cannot be negative")
	}
	if len(c.PayPal.Currency) != 3 {
		return fmt.Errorf("paypal.currency must be an ISO 4217 code, got %q", c.PayPal.Currency)
	}

	if c.App.Env == "production" {
		if c.PayPal.Sandbox {
			return fmt.Errorf("paypal.sandbox must be false in production")
		}
		if c.PayPal.ClientID == "" || c.PayPal.Secret == "" {
			return fmt.Errorf("paypal.client_id and paypal.secret are required in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("session.secure must be true in production (HTTPS required for secure cookies)")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAdmin && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, admin-only, or IP restricted in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}
