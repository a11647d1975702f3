package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "console:session:"

// RedisSessionStore keeps each session in one Redis hash. Updates run in a
// MULTI/EXEC transaction so no reader sees half of an update.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore connects to Redis and returns a session store.
func NewRedisSessionStore(cfg config.RedisConfig, keyPrefix string, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisSessionStoreWithClient(client, keyPrefix, ttl), nil
}

// NewRedisSessionStoreWithClient creates a store with an existing client.
func NewRedisSessionStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSessionStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisSessionStore) key(sid string) string {
	return s.keyPrefix + auth.HashSessionID(sid)
}

// Load returns the stored values of sid. Unknown fields are ignored.
func (s *RedisSessionStore) Load(ctx context.Context, sid string) (session.Values, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	v := make(session.Values, len(fields))
	for f, val := range fields {
		if k := session.Key(f); k.Valid() {
			v[k] = val
		}
	}
	return v, nil
}

// Apply writes u atomically and refreshes the session TTL.
func (s *RedisSessionStore) Apply(ctx context.Context, sid string, u session.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Empty() {
		return nil
	}

	set := make(map[string]any, len(u.Set))
	del := make([]string, 0, len(u.Delete))
	for k, val := range u.Set {
		if val == "" {
			del = append(del, string(k))
			continue
		}
		set[string(k)] = val
	}
	for _, k := range u.Delete {
		del = append(del, string(k))
	}

	key := s.key(sid)
	cmds, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(del) > 0 {
			pipe.HDel(ctx, key, del...)
		}
		if len(set) > 0 {
			pipe.HSet(ctx, key, set)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply session update: %w", err)
	}
	for _, c := range cmds {
		if c.Err() != nil && !errors.Is(c.Err(), redis.Nil) {
			return fmt.Errorf("failed to apply session update: %w", c.Err())
		}
	}
	return nil
}

// Clear removes every value of sid.
func (s *RedisSessionStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

var _ session.Store = (*RedisSessionStore)(nil)
