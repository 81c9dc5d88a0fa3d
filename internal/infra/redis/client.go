package redis

import (
	"context"
	"fmt"
	"time"

	"admin-dashboard/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 2 * time.Second
	readTimeout  = time.Second
	writeTimeout = time.Second
	pingTimeout  = 3 * time.Second

	errFailedPingRedisFmt = "failed to ping redis at %s: %w"
)

// New connects to redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(errFailedPingRedisFmt, cfg.Addr, err)
	}

	return client, nil
}
