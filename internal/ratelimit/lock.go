package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] lease key, ARGV[1] holder token. Returns 1 when the holder still
// owned the lease.
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

var errEmptyLeaseKey = errors.New("lease key is empty")

// orderLease is a redis SET NX lease held by one payment attempt at a time.
type orderLease struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func newOrderLease(client redis.UniversalClient, ttl time.Duration) *orderLease {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &orderLease{client: client, ttl: ttl}
}

// acquire returns the holder token, or ok=false while another attempt holds
// key.
func (l *orderLease) acquire(ctx context.Context, key string) (token string, ok bool, err error) {
	if l == nil {
		return "", false, ErrNotConfigured
	}
	if key == "" {
		return "", false, errEmptyLeaseKey
	}

	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// release drops the lease when token still holds it. held=false means the
// lease had already expired or was taken over.
func (l *orderLease) release(ctx context.Context, key, token string) (held bool, err error) {
	if l == nil || key == "" || token == "" {
		return false, nil
	}
	n, err := releaseLease.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
