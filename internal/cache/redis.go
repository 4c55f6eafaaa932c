package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"candlehub/internal/config"
	"candlehub/internal/logger"
)

// RedisTier is the optional fast shared tier.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier connects and pings the configured instance. Any failure
// returns an error; the manager downgrades that to a warning and runs
// without this tier.
func NewRedisTier(cfg config.RedisConfig) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:   cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisTier{client: client}, nil
}

func (r *RedisTier) Name() string { return "redis" }

func (r *RedisTier) Get(ctx context.Context, key Key) ([]byte, bool) {
	payload, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debugf("cache redis: get %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

func (r *RedisTier) Set(ctx context.Context, key Key, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key.String(), payload, ttl).Err(); err != nil {
		logger.Debugf("cache redis: set %s: %v", key, err)
	}
}

func (r *RedisTier) Delete(ctx context.Context, key Key) {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		logger.Debugf("cache redis: del %s: %v", key, err)
	}
}
