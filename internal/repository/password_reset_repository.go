package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PasswordResetRepository stores single-use reset tokens.
type PasswordResetRepository interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the user bound to token and invalidates it.
	Consume(ctx context.Context, token string) (string, error)
}

type passwordResetRepository struct {
	client *redis.Client
	prefix string
}

// NewPasswordResetRepository keeps tokens in Redis under "<prefix>:pwreset:<token>".
func NewPasswordResetRepository(client *redis.Client, prefix string) PasswordResetRepository {
	return &passwordResetRepository{client: client, prefix: prefix}
}

func (r *passwordResetRepository) key(token string) string {
	return fmt.Sprintf("%s:pwreset:%s", r.prefix, token)
}

func (r *passwordResetRepository) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(token), userID, ttl).Err()
}

func (r *passwordResetRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, r.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return "", err
	}
	return userID, nil
}
