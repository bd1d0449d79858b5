package database

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds the cache client from a redis URL. The cache is
// optional: when redis is unreachable the service runs without it and nil is
// returned.
func ConnectRedis(redisURL string, logger *slog.Logger) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis URL, running without cache", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis not available, running without cache", "error", err)
		return nil
	}

	logger.Info("redis connected")
	return client
}
