package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores one token per browser session id under "<key>:<sid>".
// Load and Save both restart the TTL, so a slot expires after ttl without requests.
// A zero ttl keeps the slot until Delete.
type Redis struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, key, sid string, ttl time.Duration) (*Redis, error) {
	if rdb == nil {
		return nil, errors.New("tokens: redis client is nil")
	}
	if key == "" || sid == "" {
		return nil, errors.New("tokens: key and session id are required")
	}
	return &Redis{rdb: rdb, key: RedisKey(key, sid), ttl: ttl}, nil
}

// RedisKey is the storage key for a browser session's token.
func RedisKey(key, sid string) string {
	return fmt.Sprintf("%s:%s", key, sid)
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	var cmd *redis.StringCmd
	if r.ttl > 0 {
		cmd = r.rdb.GetEx(ctx, r.key, r.ttl)
	} else {
		cmd = r.rdb.Get(ctx, r.key)
	}
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokens: redis get: %w", err)
	}
	return v, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("tokens: empty token")
	}
	if err := r.rdb.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("tokens: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("tokens: redis del: %w", err)
	}
	return nil
}
