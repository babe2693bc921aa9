package mudra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nrityalens/nrityalens/internal/model"
	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix はカタログキャッシュのキー接頭辞。
const cacheKeyPrefix = "mudra:"

// Cache はカタログの読み取りキャッシュのインターフェース。
// Getはキーが存在しない場合にfalseを返す。
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) error
}

// listCacheKey は絞り込み条件ごとのキャッシュキーを返す。
// url.Valuesはキー順にエンコードするため、同じ条件は同じキーになる。
func listCacheKey(f model.MudraFilter) string {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", string(f.Category))
	}
	if f.Difficulty != "" {
		v.Set("difficulty", string(f.Difficulty))
	}
	if f.Animal != "" {
		v.Set("animal", strings.ToLower(f.Animal))
	}
	if f.Search != "" {
		v.Set("search", strings.ToLower(f.Search))
	}
	return cacheKeyPrefix + "list:" + v.Encode()
}

func itemCacheKey(id string) string {
	return cacheKeyPrefix + "id:" + id
}

// Connect はRedisクライアントを生成する。redis:// 形式のURLとhost:port形式の両方を受け付ける。
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisCache はRedisを使用したCache実装。値はJSONで保存する。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache はRedisCacheを生成する。
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get はキーの値をdstにデコードする。
func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set は値をTTL付きで保存する。
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear はカタログのキャッシュキーを全て削除する。
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping は接続を確認する。
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close はクライアントを閉じる。
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// compile-time interface check
var _ Cache = (*RedisCache)(nil)
