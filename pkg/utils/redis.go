package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evolutech-console/internal/config"

	"github.com/redis/go-redis/v9"
)

// Token slots are tiny GET/SET/DEL calls on the request path; keep timeouts short
// so a slow Redis surfaces as a 503 rather than a hung request.
const (
	redisDialTimeout     = 3 * time.Second
	redisReadTimeout     = 2 * time.Second
	redisWriteTimeout    = 2 * time.Second
	redisPoolSize        = 20
	redisPoolTimeout     = 4 * time.Second
	redisConnMaxIdleTime = 5 * time.Minute
	redisPingTimeout     = 2 * time.Second
)

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.Host == "" {
		return nil, errors.New("redis host is required")
	}
	return &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		ClientName:      ApplicationName,
		DialTimeout:     redisDialTimeout,
		ReadTimeout:     redisReadTimeout,
		WriteTimeout:    redisWriteTimeout,
		PoolSize:        redisPoolSize,
		PoolTimeout:     redisPoolTimeout,
		ConnMaxIdleTime: redisConnMaxIdleTime,
	}, nil
}

// OpenRedis connects the browser-session token store and validates it via PING.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := PingRedis(ctx, rdb); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func PingRedis(ctx context.Context, rdb redis.Cmdable) error {
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
