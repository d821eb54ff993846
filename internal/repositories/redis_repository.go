package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository tracks issued refresh-token ids and revoked access-token
// ids. Entries expire with the tokens they mirror.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) StoreSession(ctx context.Context, jti string, userID string, ttl time.Duration) error {
	return r.rdb.Set(ctx, "session:"+jti, userID, ttl).Err()
}

func (r *RedisRepository) DeleteSession(ctx context.Context, jti string) error {
	return r.rdb.Del(ctx, "session:"+jti).Err()
}

func (r *RedisRepository) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, "blacklist:"+jti, "true", ttl).Err()
}

func (r *RedisRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := r.rdb.Exists(ctx, "blacklist:"+jti).Result()
	return exists == 1, err
}
