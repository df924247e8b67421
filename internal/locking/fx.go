package locking

import (
	"github.com/herbtrace/herbtrace/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locking",
	fx.Provide(New),
)

// New picks the Redis-backed locker when an address is configured and
// falls back to in-process keyed mutexes otherwise.
func New(cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		log.Named("locking").Info("redis not configured, using in-process locks")
		return NewMutexLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	log.Named("locking").Info("using redis locks", zap.String("addr", cfg.RedisAddr))
	return NewRedisLocker(client)
}
