package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes a bucket atomically.
// KEYS[1] bucket key; ARGV: rate/s, capacity, cost, now (seconds), ttl (seconds).
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, ttl)

return allowed
`)

// RedisStore shares token buckets between instances through Redis.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
	rps    float64
	burst  int
}

// NewRedisStore creates a store backed by rdb.
func NewRedisStore(rdb redis.Scripter, prefix string, rps float64, burst int) *RedisStore {
	if prefix == "" {
		prefix = "delivery:ratelimit"
	}
	if burst < 1 {
		burst = 1
	}
	return &RedisStore{rdb: rdb, prefix: prefix, rps: rps, burst: burst}
}

// ttlSeconds outlasts a full refill of an empty bucket.
func (s *RedisStore) ttlSeconds() int64 {
	if s.rps <= 0 {
		return 60
	}
	ttl := math.Ceil(float64(s.burst)/s.rps) + 1
	if ttl > math.MaxInt32 {
		return math.MaxInt32
	}
	return int64(ttl)
}

func (s *RedisStore) key(client string) string {
	return fmt.Sprintf("%s:%s", s.prefix, client)
}

// Allow consumes one token for key.
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := tokenBucketScript.Run(ctx, s.rdb, []string{s.key(key)}, s.rps, s.burst, 1, now, s.ttlSeconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return res == 1, nil
}
