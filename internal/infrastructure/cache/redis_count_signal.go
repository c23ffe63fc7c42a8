package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gamestore/storefront/internal/domain/badge"
)

const (
	defaultCountChannel = "storefront:cart:count"
	defaultSentinelKey  = "carritoUpdate"
	defaultSentinelTTL  = 100 * time.Millisecond
	defaultCloseTimeout = 5 * time.Second
)

// RedisCountSignal implements badge.CountSignal using a short-lived sentinel
// key plus Redis Pub/Sub. The sentinel holds the count and expires after
// sentinelTTL; the published message carries the same count.
type RedisCountSignal struct {
	client      *redis.Client
	channel     string
	sentinelKey string
	sentinelTTL time.Duration
	logger      *zap.Logger
	cancelFn    context.CancelFunc
	doneCh      chan struct{}
	doneOnce    sync.Once
	mu          sync.Mutex
	isRunning   bool
}

// RedisCountSignalOption is a functional option for configuring the signal
type RedisCountSignalOption func(*RedisCountSignal)

// WithSignalChannel sets the Pub/Sub channel name
func WithSignalChannel(channel string) RedisCountSignalOption {
	return func(s *RedisCountSignal) {
		s.channel = channel
	}
}

// WithSentinel sets the sentinel key prefix and lifetime
func WithSentinel(key string, ttl time.Duration) RedisCountSignalOption {
	return func(s *RedisCountSignal) {
		s.sentinelKey = key
		s.sentinelTTL = ttl
	}
}

// WithSignalLogger sets the logger for the signal
func WithSignalLogger(logger *zap.Logger) RedisCountSignalOption {
	return func(s *RedisCountSignal) {
		s.logger = logger
	}
}

// NewRedisCountSignal creates a signal on an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisCountSignal(client *redis.Client, opts ...RedisCountSignalOption) *RedisCountSignal {
	s := &RedisCountSignal{
		client:      client,
		channel:     defaultCountChannel,
		sentinelKey: defaultSentinelKey,
		sentinelTTL: defaultSentinelTTL,
		logger:      zap.NewNop(),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SentinelKey returns the sentinel key of a session
func (s *RedisCountSignal) SentinelKey(sessionID string) string {
	return s.sentinelKey + ":" + sessionID
}

// Publish writes the sentinel and notifies every subscriber
func (s *RedisCountSignal) Publish(ctx context.Context, update badge.CountUpdate) error {
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal count update: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.SentinelKey(update.SessionID), strconv.Itoa(update.Count), s.sentinelTTL)
	pipe.Publish(ctx, s.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to publish count update",
			zap.String("channel", s.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish count update: %w", err)
	}

	s.logger.Debug("Published count update",
		zap.String("session_id", update.SessionID),
		zap.Int("count", update.Count))

	return nil
}

// Subscribe listens for count updates and invokes callback for each one.
// It blocks, so it should be called in a goroutine.
func (s *RedisCountSignal) Subscribe(ctx context.Context, callback func(badge.CountUpdate)) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	s.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	pubsub := s.client.Subscribe(subCtx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		s.markDone()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	s.logger.Info("Subscribed to cart count channel", zap.String("channel", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			s.logger.Info("Cart count subscription stopped")
			s.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("Cart count channel closed")
				s.markDone()
				return nil
			}

			var update badge.CountUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				s.logger.Error("Failed to unmarshal count update",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			go func(u badge.CountUpdate) {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("Panic in count update callback", zap.Any("panic", r))
					}
				}()
				callback(u)
			}(update)
		}
	}
}

func (s *RedisCountSignal) markDone() {
	s.doneOnce.Do(func() {
		close(s.doneCh)
	})
}

// Close stops the subscription. The Redis client is left open.
func (s *RedisCountSignal) Close() error {
	s.mu.Lock()
	cancelFn := s.cancelFn
	s.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-s.doneCh:
		case <-time.After(defaultCloseTimeout):
			s.logger.Warn("Timeout waiting for count subscription to stop")
		}
	}
	return nil
}

var _ badge.CountSignal = (*RedisCountSignal)(nil)
