package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis truncates Lua numbers to integers on the way out, so the bucket
// level is kept and returned in thousandths of a token.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

local state = redis.call("HMGET", KEYS[1], "milli", "ts")
local milli = tonumber(state[1])
local ts = tonumber(state[2])

if milli == nil or ts == nil then
  milli = burst
else
  local elapsed = math.max(0, now - ts)
  milli = math.min(burst, milli + elapsed * rate)
end

local allowed = 0
if milli >= 1000 then
  allowed = 1
  milli = milli - 1000
end
milli = math.floor(milli)

redis.call("HSET", KEYS[1], "milli", milli, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, milli, now}
`

var (
	ErrBucketUnavailable = errors.New("rate limiter not configured")
	ErrBucketKey         = errors.New("rate limiter key is empty")
	ErrBucketShape       = errors.New("rate limiter rate and burst must be positive")
)

// TokenBucket is a redis-side token bucket; every replica sees the same
// level for a key.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from key, refilling at rate tokens per second up to
// burst.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case t == nil || t.client == nil:
		return &RateLimitResult{}, ErrBucketUnavailable
	case key == "":
		return &RateLimitResult{}, ErrBucketKey
	case rate <= 0 || burst <= 0:
		return &RateLimitResult{}, ErrBucketShape
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		rate, burst, bucketTTL(rate, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	return bucketResult(reply, rate, burst)
}

func bucketResult(reply []int64, rate float64, burst int) (*RateLimitResult, error) {
	if len(reply) != 3 {
		return &RateLimitResult{}, fmt.Errorf("rate limiter: unexpected reply of %d values", len(reply))
	}
	allowed := reply[0] == 1
	milli := reply[1]
	now := time.UnixMilli(reply[2])

	res := &RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(milli / 1000),
		ResetTime: now,
	}
	if !allowed {
		missing := float64(1000-milli) / 1000
		res.RetryAfter = time.Duration(math.Ceil(missing / rate * float64(time.Second)))
		res.ResetTime = now.Add(res.RetryAfter)
	}
	return res, nil
}

// bucketTTL keeps an idle key around for two full refills.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
