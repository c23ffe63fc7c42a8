package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamestore/storefront/internal/domain/badge"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func waitForSubscriber(t *testing.T, client *redis.Client, channel string) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && n[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisCountSignal_PublishWritesSentinelWithCount(t *testing.T) {
	client, mr := setupTestRedis(t)
	signal := NewRedisCountSignal(client, WithSentinel("carritoUpdate", 100*time.Millisecond))

	err := signal.Publish(context.Background(), badge.CountUpdate{SessionID: "sid-1", Count: 4})
	require.NoError(t, err)

	key := signal.SentinelKey("sid-1")
	assert.Equal(t, "carritoUpdate:sid-1", key)

	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(4), val)
	assert.Equal(t, 100*time.Millisecond, mr.TTL(key))

	mr.FastForward(150 * time.Millisecond)
	assert.False(t, mr.Exists(key), "sentinel is removed after its lifetime")
}

func TestRedisCountSignal_SubscribeReceivesCount(t *testing.T) {
	client, _ := setupTestRedis(t)
	signal := NewRedisCountSignal(client, WithSignalChannel("test:count"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan badge.CountUpdate, 1)
	go func() {
		_ = signal.Subscribe(ctx, func(u badge.CountUpdate) {
			received <- u
		})
	}()
	waitForSubscriber(t, client, "test:count")

	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "sid-2", Count: 7, Origin: "node-a"}))

	select {
	case u := <-received:
		assert.Equal(t, "sid-2", u.SessionID)
		assert.Equal(t, 7, u.Count)
		assert.Equal(t, "node-a", u.Origin)
		assert.NotZero(t, u.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("count update not delivered")
	}

	require.NoError(t, signal.Close())
}

func TestRedisCountSignal_SubscribeTwiceFails(t *testing.T) {
	client, _ := setupTestRedis(t)
	signal := NewRedisCountSignal(client, WithSignalChannel("test:twice"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = signal.Subscribe(ctx, func(badge.CountUpdate) {}) }()
	waitForSubscriber(t, client, "test:twice")

	err := signal.Subscribe(ctx, func(badge.CountUpdate) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestRedisCountSignal_PanickingCallbackKeepsSubscription(t *testing.T) {
	client, _ := setupTestRedis(t)
	signal := NewRedisCountSignal(client, WithSignalChannel("test:panic"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan int, 2)
	go func() {
		_ = signal.Subscribe(ctx, func(u badge.CountUpdate) {
			if u.Count == 1 {
				panic("boom")
			}
			received <- u.Count
		})
	}()
	waitForSubscriber(t, client, "test:panic")

	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "s", Count: 1}))
	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "s", Count: 2}))

	select {
	case n := <-received:
		assert.Equal(t, 2, n)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription stopped after a panicking callback")
	}
}

func TestInMemoryCountSignal(t *testing.T) {
	signal := NewInMemoryCountSignal(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan badge.CountUpdate, 1)
	go func() { _ = signal.Subscribe(ctx, func(u badge.CountUpdate) { received <- u }) }()

	require.Eventually(t, func() bool {
		signal.mu.RLock()
		defer signal.mu.RUnlock()
		return len(signal.subscribers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "sid", Count: 3}))

	u := <-received
	assert.Equal(t, 3, u.Count)

	n, ok := signal.Sentinel("sid")
	require.True(t, ok)
	assert.Equal(t, 3, n)

	assert.Eventually(t, func() bool {
		_, ok := signal.Sentinel("sid")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCountSignal_RepublishKeepsNewerSentinel(t *testing.T) {
	signal := NewInMemoryCountSignal(200 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "sid", Count: 1}))
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, signal.Publish(ctx, badge.CountUpdate{SessionID: "sid", Count: 2}))

	// the first write has expired, the second has not
	time.Sleep(120 * time.Millisecond)
	n, ok := signal.Sentinel("sid")
	require.True(t, ok, "expiry of the first write removed the second")
	assert.Equal(t, 2, n)

	assert.Eventually(t, func() bool {
		_, ok := signal.Sentinel("sid")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
