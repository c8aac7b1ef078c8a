// SPDX-License-Identifier: MIT

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "biketrack:device:"
	redisIndexKey  = "biketrack:devices"
)

// RedisStore keeps one hash per device plus a set indexing the device IDs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := xglog.WithComponent("kvstore")
	logger.Info().
		Str(xglog.FieldStore, "redis").
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Msg("connected to Redis device store")

	return &RedisStore{client: client}, nil
}

func redisKey(deviceID string) string { return redisKeyPrefix + deviceID }

// Put replaces the device hash atomically.
func (s *RedisStore) Put(ctx context.Context, deviceID string, kv map[string]string) error {
	if err := checkID(deviceID); err != nil {
		return err
	}
	key := redisKey(deviceID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(kv) > 0 {
			pipe.HSet(ctx, key, kv)
		}
		pipe.SAdd(ctx, redisIndexKey, deviceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %s: %w", deviceID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, deviceID string) (map[string]string, error) {
	key := redisKey(deviceID)
	var (
		fields *redis.MapStringStringCmd
		member *redis.BoolCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		member = pipe.SIsMember(ctx, redisIndexKey, deviceID)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get %s: %w", deviceID, err)
	}
	// A record with an empty map has no hash but is still indexed.
	if !member.Val() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	return fields.Val(), nil
}

func (s *RedisStore) Delete(ctx context.Context, deviceID string) error {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKey(deviceID))
		removed = pipe.SRem(ctx, redisIndexKey, deviceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", deviceID, err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, deviceID)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
