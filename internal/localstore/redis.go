package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "digimarket:"

// Redis stores slots as plain keys without expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a redis-backed slot store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, slot string, dst any) error {
	data, err := r.client.Get(ctx, keyPrefix+slot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis get slot %s: %w", slot, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode slot %s: %w", slot, err)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", slot, err)
	}
	if err := r.client.Set(ctx, keyPrefix+slot, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set slot %s: %w", slot, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, slot string) error {
	if err := r.client.Del(ctx, keyPrefix+slot).Err(); err != nil {
		return fmt.Errorf("redis del slot %s: %w", slot, err)
	}
	return nil
}

// Ping checks the redis connection for readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
