package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexLocalSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex(nil, config.Config{RateLimit: config.RateLimitConfig{LockWait: 50 * time.Millisecond}})

	unlock, err := m.Lock(context.Background(), "user:1")
	require.NoError(t, err)

	_, err = m.Lock(context.Background(), "user:1")
	require.True(t, errors.Is(err, ErrLockBusy))

	other, err := m.Lock(context.Background(), "user:2")
	require.NoError(t, err)
	other()

	unlock()
	again, err := m.Lock(context.Background(), "user:1")
	require.NoError(t, err)
	again()
}

func TestNilLockerAndBucketAreSafe(t *testing.T) {
	var l *Locker
	require.NoError(t, l.Release(context.Background(), "k", "t"))
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	require.Error(t, err)

	require.Nil(t, NewLocker(nil))
	require.Nil(t, NewTokenBucket(nil))

	var limiter *APILimiter
	res, ok := limiter.Allow(context.Background(), "user")
	require.True(t, ok)
	require.Nil(t, res)
}

func TestBucketTTL(t *testing.T) {
	require.Equal(t, 8*time.Second, bucketTTL(5, 20))
	require.Equal(t, time.Second, bucketTTL(1000, 1))
}

func TestBucketResult(t *testing.T) {
	res, err := bucketResult([]int64{1, 2500, 1_700_000_000_000}, 2, 5)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 2, res.Remaining)
	require.Equal(t, 5, res.Limit)
	require.Zero(t, res.RetryAfter)

	// A quarter token left at two tokens per second: 375ms to the next one.
	res, err = bucketResult([]int64{0, 250, 1_700_000_000_000}, 2, 5)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
	require.Equal(t, 375*time.Millisecond, res.RetryAfter)
	require.Equal(t, time.UnixMilli(1_700_000_000_375), res.ResetTime)

	_, err = bucketResult([]int64{1}, 2, 5)
	require.Error(t, err)
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	var b *TokenBucket
	_, err := b.Allow(context.Background(), "k", 1, 1)
	require.ErrorIs(t, err, ErrBucketUnavailable)
}
