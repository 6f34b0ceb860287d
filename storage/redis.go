package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// RedisBackend implements an object store as plain Redis string keys under a prefix.
type RedisBackend struct {
	rdb         *redis.Client
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend wraps an existing client. Keys are prefix + name.
func NewRedisBackend(rdb *redis.Client, prefix string, log *slog.Logger) *RedisBackend {
	opts := rdb.Options()
	return &RedisBackend{
		rdb:         rdb,
		prefix:      prefix,
		log:         log,
		locationURI: fmt.Sprintf("redis://%s/%d?prefix=%s", opts.Addr, opts.DB, prefix),
	}
}

func (b *RedisBackend) key(name string) string {
	return b.prefix + name
}

// Load reads the object key.
func (b *RedisBackend) Load(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}

	data, err := b.rdb.Get(ctx, b.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, name)
	}
	if err != nil {
		b.log.Error("Failed to read from redis",
			slog.String("key", b.key(name)),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return data, nil
}

// Store sets the object key without expiry.
func (b *RedisBackend) Store(ctx context.Context, name string, data []byte) error {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return err
	}

	if err := b.rdb.Set(ctx, b.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// Available pings the server.
func (b *RedisBackend) Available(ctx context.Context) bool {
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		b.log.Debug("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", b.rdb.Options().Addr)
}

func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}
