// Package cache keeps rendered metric reports in Redis for a bounded time.
// The reconciliation engine never reads from it; HTTP handlers decide when to
// consult it and refreshes decide when to drop it.
package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the report cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, years []int, value []byte) error
	InvalidateYear(ctx context.Context, year int) (int64, error)
	InvalidateAll(ctx context.Context) (int64, error)
}

// RedisStore keeps each report under prefix:report:<key> and indexes it in a
// set per covered year so one refresh can drop every report touching that year.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store. ttl must be positive.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	if prefix == "" {
		prefix = "metrics"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

// NewClient opens a Redis client from a redis:// or rediss:// URL.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) reportKey(key string) string {
	return s.prefix + ":report:" + key
}

func (s *RedisStore) yearKey(year int) string {
	return s.prefix + ":year:" + strconv.Itoa(year)
}

// Get returns the cached bytes for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, s.reportKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return raw, true, nil
}

// Set stores value with the store TTL and tags it with every year it covers.
func (s *RedisStore) Set(ctx context.Context, key string, years []int, value []byte) error {
	reportKey := s.reportKey(key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, reportKey, value, s.ttl)
		for _, year := range years {
			pipe.SAdd(ctx, s.yearKey(year), reportKey)
			pipe.Expire(ctx, s.yearKey(year), 2*s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// InvalidateYear drops every report tagged with year and returns how many were removed.
func (s *RedisStore) InvalidateYear(ctx context.Context, year int) (int64, error) {
	tag := s.yearKey(year)
	members, err := s.rdb.SMembers(ctx, tag).Result()
	if err != nil {
		return 0, fmt.Errorf("cache members: %w", err)
	}
	var removed int64
	if len(members) > 0 {
		removed, err = s.rdb.Del(ctx, members...).Result()
		if err != nil {
			return 0, fmt.Errorf("cache delete: %w", err)
		}
	}
	if err := s.rdb.Del(ctx, tag).Err(); err != nil {
		return removed, fmt.Errorf("cache delete tag: %w", err)
	}
	return removed, nil
}

// InvalidateAll drops every report and tag under the prefix.
func (s *RedisStore) InvalidateAll(ctx context.Context) (int64, error) {
	var removed int64
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("cache delete: %w", err)
		}
		removed += n
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cache scan: %w", err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}
