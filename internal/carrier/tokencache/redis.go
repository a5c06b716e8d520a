package tokencache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares tokens across instances through a redis key with TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "carrier:token:",
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return token, true, nil
}

func (r *Redis) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, token, ttl).Err()
}
