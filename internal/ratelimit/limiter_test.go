package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testRedis connects to REDIS_TEST_ADDR and skips when it is unset or
// unreachable.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 13})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func newTestLimiter(client *redis.Client, gw config.GatewayConfig) *Limiter {
	return NewLimiter(Params{
		Client:  client,
		Gateway: config.NewStaticGatewayConfigHolder(gw),
		Cfg:     config.Config{Vendor: config.VendorConfig{Timeout: 15 * time.Second}},
		Log:     zap.NewNop(),
	})
}

func TestLimiterWithoutRedisAllows(t *testing.T) {
	l := newTestLimiter(nil, config.DefaultGatewayConfig())
	ctx := context.Background()

	assert.False(t, l.Enabled())
	for i := 0; i < 20; i++ {
		res, err := l.Allow(ctx, config.BucketPayment, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 5, res.Limit)
	}

	token, ok, err := l.TryLockOrder(ctx, "shop", "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.ReleaseOrder(ctx, "shop", "1", token))
}

func TestLockTTLCoversVendorTimeout(t *testing.T) {
	l := NewLimiter(Params{
		Gateway: config.NewStaticGatewayConfigHolder(config.DefaultGatewayConfig()),
		Cfg:     config.Config{Vendor: config.VendorConfig{Timeout: 45 * time.Second}},
		Log:     zap.NewNop(),
	})
	assert.Equal(t, 90*time.Second, l.lockTTL)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(0.5, 5))
	assert.Equal(t, time.Second, bucketTTL(1000, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestScriptValueParsing(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(1700000000000), toInt("1700000000000"))
	assert.InDelta(t, 2.5, toFloat("2.5"), 0.0001)
	assert.InDelta(t, 3, toFloat(int64(3)), 0.0001)
	assert.Zero(t, toFloat(nil))
}

func TestTokenBucketDeniesAfterBurst(t *testing.T) {
	client := testRedis(t)
	gw := config.DefaultGatewayConfig()
	l := newTestLimiter(client, gw)
	ctx := context.Background()
	ip := fmt.Sprintf("192.0.2.%d", time.Now().UnixNano()%250)

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, config.BucketPayment, ip)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}
	res, err := l.Allow(ctx, config.BucketPayment, ip)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other, err := l.Allow(ctx, config.BucketAPI, ip)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestOrderLockIsExclusive(t *testing.T) {
	client := testRedis(t)
	l := newTestLimiter(client, config.DefaultGatewayConfig())
	ctx := context.Background()

	token, ok, err := l.TryLockOrder(ctx, "shop", "1001")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLockOrder(ctx, "shop", "1001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.ReleaseOrder(ctx, "shop", "1001", "not-the-holder"))
	_, ok, err = l.TryLockOrder(ctx, "shop", "1001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.ReleaseOrder(ctx, "shop", "1001", token))
	_, ok, err = l.TryLockOrder(ctx, "shop", "1001")
	require.NoError(t, err)
	assert.True(t, ok)
}
