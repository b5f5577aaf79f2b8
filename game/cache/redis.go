package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// DefaultLockExpiry bounds how long a crashed solver can hold a fingerprint
const DefaultLockExpiry = 2 * time.Minute

// RedisCache shares solutions between server instances. Entries are JSON
// documents under KeyPrefix+fingerprint with an optional TTL.
type RedisCache struct {
	client     redis.UniversalClient
	ttl        time.Duration
	locker     *redsync.Redsync
	lockExpiry time.Duration
}

// NewRedisClient connects to addr, which is either host:port or a
// redis:// URL
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRedisCache wraps a client. A ttl of zero keeps entries forever.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		ttl:        ttl,
		locker:     redsync.New(goredis.NewPool(client)),
		lockExpiry: DefaultLockExpiry,
	}
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	data, err := c.client.Get(ctx, KeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode solution: %w", err)
	}
	return &e, nil
}

func (c *RedisCache) GetByID(ctx context.Context, id string) (*Entry, error) {
	fingerprint, err := c.client.Get(ctx, idPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read solution id: %w", err)
	}
	return c.Get(ctx, fingerprint)
}

// Put stores e under fingerprint, keeping the ID of an existing entry
func (c *RedisCache) Put(ctx context.Context, fingerprint string, e *Entry) error {
	if err := checkCacheable(e); err != nil {
		return err
	}
	e.Fingerprint = fingerprint

	old, err := c.Get(ctx, fingerprint)
	switch {
	case err == nil:
		e.ID = old.ID
	case !errors.Is(err, ErrNotFound):
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode solution: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, KeyPrefix+fingerprint, data, c.ttl)
		pipe.Set(ctx, idPrefix+e.ID, fingerprint, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store solution: %w", err)
	}
	return nil
}

// Lock takes a redsync mutex on the fingerprint
func (c *RedisCache) Lock(ctx context.Context, fingerprint string) (func(), error) {
	mutex := c.locker.NewMutex(lockPrefix+fingerprint, redsync.WithExpiry(c.lockExpiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return func() {
		_, _ = mutex.UnlockContext(context.Background())
	}, nil
}

// Close releases the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
