package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bankpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyRequestBucket = "bankpay:ratelimit:%s:%s"
	keyOrderLock     = "bankpay:lock:payment:%s:%s"

	// DefaultPaymentLockTTL outlives the vendor timeout so a slow charge
	// cannot be raced by a retry.
	DefaultPaymentLockTTL = 60 * time.Second
)

type Params struct {
	fx.In

	Client  *redis.Client `optional:"true"`
	Gateway *config.GatewayConfigHolder
	Cfg     config.Config
	Log     *zap.Logger
}

// Limiter enforces the per-bucket request limits from the gateway config
// and serializes payment attempts per order. Without redis it allows
// everything.
type Limiter struct {
	bucket  *TokenBucket
	lease   *orderLease
	gateway *config.GatewayConfigHolder
	lockTTL time.Duration
	log     *zap.Logger
}

func NewLimiter(p Params) *Limiter {
	log := p.Log.Named("ratelimit")
	lockTTL := DefaultPaymentLockTTL
	if floor := 2 * p.Cfg.Vendor.Timeout; floor > lockTTL {
		lockTTL = floor
	}
	l := &Limiter{
		gateway: p.Gateway,
		lockTTL: lockTTL,
		log:     log,
	}
	if p.Client == nil {
		log.Info("redis not configured, rate limiting and payment locks disabled")
		return l
	}
	l.bucket = NewTokenBucket(p.Client)
	l.lease = newOrderLease(p.Client, lockTTL)
	return l
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow takes a token from bucket for key (usually the client IP).
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (*Result, error) {
	rl := l.gateway.Get().Limit(bucket)
	if !l.Enabled() {
		return &Result{Allowed: true, Limit: rl.Limit, Remaining: rl.Limit}, nil
	}
	rate := float64(rl.Limit) / rl.Window.Seconds()
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRequestBucket, bucket, strings.TrimSpace(key)), rate, rl.Limit)
}

// TryLockOrder returns ok=false when another payment for the order holds
// the lock. The returned token releases it.
func (l *Limiter) TryLockOrder(ctx context.Context, shop, orderID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lease.acquire(ctx, orderLockKey(shop, orderID))
}

func (l *Limiter) ReleaseOrder(ctx context.Context, shop, orderID, token string) error {
	if !l.Enabled() {
		return nil
	}
	held, err := l.lease.release(ctx, orderLockKey(shop, orderID), token)
	if err != nil {
		return err
	}
	if !held && token != "" {
		l.log.Warn("payment lock expired before release",
			zap.String("shop", shop),
			zap.String("order_id", orderID),
			zap.Duration("ttl", l.lockTTL),
		)
	}
	return nil
}

func orderLockKey(shop, orderID string) string {
	return fmt.Sprintf(keyOrderLock, strings.TrimSpace(shop), strings.TrimSpace(orderID))
}
