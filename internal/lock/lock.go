// Package lock guards queue batches so that only one invocation processes
// the queue at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "simscan:lock:"

var ErrLockNotHeld = errors.New("lock not held by this owner")

type Mutex interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type Factory interface {
	NewMutex(name string) Mutex
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

type RedisFactory struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisFactory(client redis.UniversalClient, ttl time.Duration) *RedisFactory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisFactory{client: client, ttl: ttl}
}

// NewFactory connects to addr, or returns a no-op factory when addr is empty.
func NewFactory(ctx context.Context, addr string, ttl time.Duration) (Factory, func() error, error) {
	if addr == "" {
		return NopFactory{}, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisFactory(client, ttl), client.Close, nil
}

func (f *RedisFactory) NewMutex(name string) Mutex {
	return &redisMutex{client: f.client, key: keyPrefix + name, value: uuid.NewString(), ttl: f.ttl}
}

type redisMutex struct {
	client redis.UniversalClient
	key    string
	value  string
	ttl    time.Duration
}

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", m.key, err)
	}
	return ok, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, m.client, []string{m.key}, m.value).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", m.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// NopFactory hands out locks that always succeed, for single-worker setups.
type NopFactory struct{}

func (NopFactory) NewMutex(string) Mutex { return nopMutex{} }

type nopMutex struct{}

func (nopMutex) TryLock(context.Context) (bool, error) { return true, nil }
func (nopMutex) Unlock(context.Context) error          { return nil }
