package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/theatro/theatro/internal/adapters/database/redis/stats"
	"github.com/theatro/theatro/internal/adapters/database/redis/tokens"
)

type Client struct {
	Tokens *tokens.Storage
	Stats  *stats.Storage
}

type Options struct {
	Host     string
	Port     int
	Password string
	// StatsTTL bounds how long daily notification counters are kept.
	StatsTTL time.Duration
}

func New(opts Options) (*Client, error) {
	tokenStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       0,
	})
	if err := tokenStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping token storage: %w", err)
	}

	statsStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       1,
	})
	if err := statsStorage.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping stats storage: %w", err)
	}

	return &Client{
		Tokens: tokens.NewStorage(tokenStorage),
		Stats:  stats.NewStorage(statsStorage, stats.WithPrefix("theatro:notifications"), stats.WithTTL(opts.StatsTTL)),
	}, nil
}
