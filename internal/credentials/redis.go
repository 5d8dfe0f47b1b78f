package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "course-selector:credential"

// RedisStorage keeps the credential as a JSON blob under a single key. It lets
// several client processes on one host share a login.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage creates Redis-backed storage. key may be empty.
func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStorage{client: client, key: key}
}

func (r *RedisStorage) Read(ctx context.Context) (*Credential, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential from redis: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential from redis: %w", err)
	}
	return &cred, nil
}

func (r *RedisStorage) Write(ctx context.Context, cred *Credential) error {
	b, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := r.client.Set(ctx, r.key, b, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credential in redis: %w", err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
