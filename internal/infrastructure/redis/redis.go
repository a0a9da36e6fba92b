// Package redis dials the cache backing the read-side usecases and the
// idempotency middleware.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the liveness probe so a wedged server fails the
// factory retry loop instead of hanging startup.
const pingTimeout = 3 * time.Second

type Config struct {
	Addr     string
	Password string // empty for unauthenticated instances
	DB       int
}

// NewClient connects and verifies the server answers before handing the
// client out. Callers own Close.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}
