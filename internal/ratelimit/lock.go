package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ridepay/internal/config"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLockBusy = errors.New("lock_busy")

type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// Mutex serializes work on a key across replicas.
type Mutex interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex polls TryLock until it wins or the wait budget runs out. Without
// redis it falls back to an in-process lock per key.
type KeyedMutex struct {
	locker *Locker
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration

	mu    sync.Mutex
	local map[string]chan struct{}
}

func NewKeyedMutex(locker *Locker, cfg config.Config) *KeyedMutex {
	ttl := cfg.RateLimit.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	wait := cfg.RateLimit.LockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &KeyedMutex{
		locker: locker,
		ttl:    ttl,
		wait:   wait,
		poll:   50 * time.Millisecond,
		local:  map[string]chan struct{}{},
	}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.wait)
	defer cancel()

	if m.locker == nil {
		return m.lockLocal(waitCtx, key)
	}

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		token, ok, err := m.locker.TryLock(waitCtx, key, m.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = m.locker.Release(context.WithoutCancel(ctx), key, token)
			}, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, ErrLockBusy
		case <-ticker.C:
		}
	}
}

func (m *KeyedMutex) lockLocal(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	ch, ok := m.local[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.local[key] = ch
	}
	m.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ErrLockBusy
	}
}

var _ Mutex = (*KeyedMutex)(nil)
