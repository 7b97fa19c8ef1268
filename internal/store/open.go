package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/config"
)

// Open builds the configured store backend. The Redis backend retries its
// initial ping; a process racing its Redis container at boot should not die
// on the first refused connection.
func Open(cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8)
		err := backoff.Retry(func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		}, policy)
		if err != nil {
			return nil, fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(client, log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
