// Package redis stores session entries in Redis so several machines or
// shells can share one signed-in session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	// keyPrefix namespaces session entries inside a shared Redis database.
	keyPrefix = "gamebuddy:session:"

	defaultDialTimeout = 5 * time.Second
	pingTimeout        = 5 * time.Second
)

// Config configures the Redis session store.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Store implements session.Storage on Redis string keys.
type Store struct {
	client redis.UniversalClient
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	slog.Debug("redis session storage connected", "addr", cfg.Addr, "db", cfg.DB)
	return &Store{client: rdb}, nil
}

// NewWithClient wraps an existing client. Close closes it.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// GetItems reads keys with a single MGET.
func (s *Store) GetItems(ctx context.Context, keys ...string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	vals, err := s.client.MGet(ctx, prefixed(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session items: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			result[keys[i]] = str
		}
	}
	return result, nil
}

// SetItems writes all items inside MULTI/EXEC.
func (s *Store) SetItems(ctx context.Context, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range items {
			pipe.Set(ctx, keyPrefix+k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing session items: %w", err)
	}
	return nil
}

// RemoveItems deletes keys with a single DEL.
func (s *Store) RemoveItems(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, prefixed(keys)...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("removing session items: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}
	return nil
}

func prefixed(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = keyPrefix + k
	}
	return out
}

// Verify interface compliance.
var _ session.Storage = (*Store)(nil)
