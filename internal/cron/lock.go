package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultLockTTL spans two cycles at the default interval.
const defaultLockTTL = 2 * defaultInterval

// Lock keeps a sweep cycle to a single worker.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	// Holder names the worker that owns the lock, or "" when it is free.
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// LockParams configure a RedisLock.
type LockParams struct {
	Client redisStore
	// Key is the namespaced redis key, one per environment.
	Key string
	// Instance identifies this worker in the stored owner value.
	Instance string
	TTL      time.Duration
}

// RedisLock is a SETNX lock whose value is "<instance>/<token>". The token is
// fresh on every acquisition.
type RedisLock struct {
	client   redisStore
	key      string
	instance string
	ttl      time.Duration
	owner    string
}

func NewRedisLock(params LockParams) (*RedisLock, error) {
	if params.Client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if strings.TrimSpace(params.Key) == "" {
		return nil, errors.New("lock key is required")
	}
	instance := strings.TrimSpace(params.Instance)
	if instance == "" {
		instance = "unknown"
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: params.Client, key: params.Key, instance: instance, ttl: ttl}, nil
}

// Key returns the redis key guarding the sweep.
func (l *RedisLock) Key() string {
	return l.key
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.instance + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release deletes the key only while it still carries this worker's token.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read owner of %s: %w", l.key, err)
	}
	if value != owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read owner of %s: %w", l.key, err)
	}
	instance, _, _ := strings.Cut(value, "/")
	return instance, nil
}
