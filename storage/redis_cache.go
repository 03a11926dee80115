package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const redisCachePrefix = "tgviews:cache:"

// RedisCacheStorage keeps cache entries msgpack-encoded with a native redis expiry
type RedisCacheStorage struct {
	client *redis.Client
}

func NewRedisCacheStorage(client *redis.Client) *RedisCacheStorage {
	return &RedisCacheStorage{client: client}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisCacheStorage) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

func (r *RedisCacheStorage) GetCache(ctx context.Context, key string) (*CacheEntry, error) {
	raw, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting cache %s: %w", key, err)
	}

	var entry CacheEntry
	if err := msgpack.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache %s: %w", key, err)
	}
	if !entry.IsValid(time.Now()) {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (r *RedisCacheStorage) SetCache(ctx context.Context, entry *CacheEntry) error {
	ttl := time.Until(entry.ValidUntil)
	if ttl <= 0 {
		return r.client.Del(ctx, redisCachePrefix+entry.Key).Err()
	}

	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache %s: %w", entry.Key, err)
	}
	if err := r.client.Set(ctx, redisCachePrefix+entry.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("saving cache %s: %w", entry.Key, err)
	}
	return nil
}
