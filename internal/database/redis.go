package database

import (
	"context"
	"fmt"
	"time"

	"event-ticket-gate/config"

	"github.com/redis/go-redis/v9"
)

// RedisOptions serves both the capacity inventory and the audit stream.
// Reserve scripts are tiny, so a slow reply means Redis is in trouble and the
// issuer should fail instead of queueing behind it.
func RedisOptions(cfg *config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   applicationName,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return opts
}

func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(RedisOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
	}

	return rdb, nil
}
