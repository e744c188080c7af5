package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage keeps the validity window of password reset tokens. The token itself
// lives on the member row; a missing key here means the link expired.
type Storage struct {
	redis *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{
		redis: client,
	}
}

func key(mail string) string {
	return fmt.Sprintf("reset:%s", mail)
}

func (s *Storage) Set(ctx context.Context, mail string, token string, expiration time.Duration) error {
	return s.redis.Set(ctx, key(mail), token, expiration).Err()
}

// Get returns the stored token, or "" when none is active.
func (s *Storage) Get(ctx context.Context, mail string) (string, error) {
	token, err := s.redis.Get(ctx, key(mail)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

func (s *Storage) Clear(ctx context.Context, mail string) error {
	return s.redis.Del(ctx, key(mail)).Err()
}
