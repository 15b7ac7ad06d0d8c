package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

// RedisRepo stores one key per revoked session and lets Redis expire it.
type RedisRepo struct {
	Client *redis.Client
	Now    func() time.Time
}

func NewRedisRepo(addr, password string) *RedisRepo {
	return &RedisRepo{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		Now: time.Now,
	}
}

func (r *RedisRepo) key(jti string) string {
	return revokedPrefix + jti
}

func (r *RedisRepo) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return ErrEmptyJTI
	}
	ttl := until.Sub(r.Now())
	if ttl <= 0 {
		return nil
	}
	if err := r.Client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(jti), err)
	}
	return nil
}

func (r *RedisRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyJTI
	}
	n, err := r.Client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", r.key(jti), err)
	}
	return n > 0, nil
}

// Purge is a no-op; keys carry their own TTL.
func (r *RedisRepo) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisRepo) Close() error {
	return r.Client.Close()
}
