package database

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tib-ai/triage/pkg/common/config"
	"github.com/tib-ai/triage/pkg/common/logger"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns the shared client, or nil when REDIS_HOST is unset or the
// server cannot be reached at startup.
func GetRedis(cfg *config.Config) *redis.Client {
	redisOnce.Do(func() {
		addr := cfg.RedisAddr()
		if addr == "" {
			logger.Log.Info("Redis not configured, report cache disabled")
			return
		}

		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Log.WithError(err).Error("Failed to connect to Redis")
			_ = client.Close()
			return
		}
		logger.Log.Info("Connected to Redis")
		redisClient = client
	})

	return redisClient
}

func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
