package credstore

import (
	"context"
	"log/slog"
	"time"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/redis/go-redis/v9"
)

// Redis keeps the credential slot in Redis, for edge renderers that
// share one logical client instance across replicas.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var _ auth.CredentialStore = (*Redis)(nil)

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithRedisTTL bounds how long an untouched credential survives in
// Redis. Zero means no expiry.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// WithRedisLogger sets the logger used to report storage degradation.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a Redis-backed store under the given key.
func NewRedis(client *redis.Client, key string, opts ...RedisOption) *Redis {
	r := &Redis{client: client, key: key, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the stored credential, if any. An unreachable Redis
// reports absent.
func (r *Redis) Get(ctx context.Context) (string, bool) {
	val, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		r.logger.Warn("credential read failed", "key", r.key, "err", err)
		return "", false
	}
	return val, val != ""
}

// Set stores the credential. Failures are logged, not surfaced.
func (r *Redis) Set(ctx context.Context, credential string) error {
	if err := r.client.Set(ctx, r.key, credential, r.ttl).Err(); err != nil {
		r.logger.Warn("credential write failed", "key", r.key, "err", err)
	}
	return nil
}

// Clear removes the stored credential. Failures are logged, not surfaced.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		r.logger.Warn("credential clear failed", "key", r.key, "err", err)
	}
	return nil
}
