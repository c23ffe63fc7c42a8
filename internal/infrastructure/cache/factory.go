package cache

import (
	"errors"
	"fmt"

	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/domain/cart"
	"github.com/gamestore/storefront/internal/domain/shared"
	"github.com/gamestore/storefront/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SnapshotStore is a cart.SnapshotStore that must be closed
type SnapshotStore interface {
	cart.SnapshotStore
	Close() error
}

// CountSignal is a badge.CountSignal that must be closed
type CountSignal interface {
	badge.CountSignal
	Close() error
}

// Stores is the state storefront requests share: cart snapshots, the badge
// count signal and the payment claims
type Stores struct {
	Snapshots SnapshotStore
	Signal    CountSignal
	Claims    shared.IdempotencyStore

	client *redis.Client
}

// Close closes every store, then the Redis client they were built on
func (s *Stores) Close() error {
	errs := []error{s.Snapshots.Close(), s.Signal.Close(), s.Claims.Close()}
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	return errors.Join(errs...)
}

// StoreFactory creates the shared stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	syncConfig            config.SyncConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory and the stores it builds
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-process stores when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(redisCfg config.RedisConfig, syncCfg config.SyncConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           redisCfg,
		syncConfig:            syncCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStores connects to Redis and builds the stores on one client
func (f *StoreFactory) CreateRedisStores() (*Stores, error) {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, err
	}
	return f.storesOn(client), nil
}

func (f *StoreFactory) storesOn(client *redis.Client) *Stores {
	return &Stores{
		Snapshots: NewRedisSnapshotStore(client, f.redisConfig.SnapshotTTL),
		Signal: NewRedisCountSignal(client,
			WithSignalChannel(f.syncConfig.Channel),
			WithSentinel(f.syncConfig.SentinelKey, f.syncConfig.SentinelTTL),
			WithSignalLogger(f.logger.Named("count-signal"))),
		Claims: NewRedisIdempotencyStore(client, ""),
		client: client,
	}
}

// CreateInMemoryStores creates in-process stores.
// WARNING: they are not shared between storefront instances, so a second
// instance has its own snapshots, badge counts and payment claims.
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	return &Stores{
		Snapshots: NewInMemorySnapshotStore(f.redisConfig.SnapshotTTL),
		Signal:    NewInMemoryCountSignal(f.syncConfig.SentinelTTL),
		Claims:    NewInMemoryIdempotencyStore(),
	}
}

// CreateStores uses Redis when it is enabled. When Redis is enabled but
// unreachable it falls back to in-process stores if allowed.
func (f *StoreFactory) CreateStores() (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-process stores")
		return f.CreateInMemoryStores(), nil
	}

	stores, err := f.CreateRedisStores()
	if err == nil {
		f.logger.Info("Using Redis stores", zap.String("addr", f.redisConfig.Addr()))
		return stores, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for shared stores but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process stores. "+
		"Badge counts and payment claims will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStores(), nil
}
