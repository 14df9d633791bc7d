package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tableside/internal/config"
	"tableside/internal/interfaces"
)

// redisStorage keeps the serialized client state under one Redis key, for
// deployments where the diner service runs on ephemeral disk.
type redisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(ctx context.Context, cfg config.RedisConfig) (interfaces.StateStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &redisStorage{client: client, key: cfg.Key}, nil
}

func (s *redisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state from redis: %w", err)
	}
	return data, nil
}

func (s *redisStorage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save state to redis: %w", err)
	}
	return nil
}
