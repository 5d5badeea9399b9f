package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geocode:"

// RedisStore shares geocoding results between recommender instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (Lookup, bool, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NotFound, false, nil
		}
		return NotFound, false, err
	}

	var lookup Lookup
	if err := json.Unmarshal(b, &lookup); err != nil {
		return NotFound, false, fmt.Errorf("decode cached lookup: %w", err)
	}

	return lookup, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, lookup Lookup, ttl time.Duration) error {
	b, err := json.Marshal(lookup)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, redisKeyPrefix+key, b, ttl).Err()
}
