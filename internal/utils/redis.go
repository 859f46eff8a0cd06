package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetJSON when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// RedisClient is a thin JSON-oriented wrapper over go-redis
type RedisClient struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient namespaces every key with prefix
func NewRedisClient(client redis.UniversalClient, prefix string) *RedisClient {
	return &RedisClient{client: client, prefix: prefix}
}

func (r *RedisClient) key(k string) string {
	return r.prefix + k
}

// SetJSON stores value as JSON (strings are stored as-is)
func (r *RedisClient) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	var data string
	switch v := value.(type) {
	case string:
		data = v
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		data = string(raw)
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *RedisClient) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}

// Publish sends a message on a (prefixed) Pub/Sub channel
func (r *RedisClient) Publish(ctx context.Context, channel string, message string) error {
	return r.client.Publish(ctx, r.key(channel), message).Err()
}

// Subscribe returns the message channel and a close function
func (r *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan *redis.Message, func() error) {
	pubsub := r.client.Subscribe(ctx, r.key(channel))
	return pubsub.Channel(), pubsub.Close
}
