package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// initRedis initializes the Redis connection. The cache is optional: the
// server runs without it, it just recomputes on every read.
func initRedis(redisURL string) error {
	opt, err := redis.ParseURL(fmt.Sprintf("redis://%s", redisURL))
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	redisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	return nil
}

func transactionsCacheKey(userID int64) string {
	return fmt.Sprintf("transactions:%d", userID)
}

func analyticsCacheKey(userID int64, window string) string {
	return fmt.Sprintf("analytics:%d:%s", userID, window)
}

// cacheGet unmarshals a cached value into dest, reporting whether it was a hit.
func cacheGet(ctx context.Context, key string, dest any) bool {
	if redisClient == nil {
		return false
	}
	cached, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(cached), dest) == nil
}

func cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if redisClient == nil {
		return
	}
	if data, err := json.Marshal(value); err == nil {
		redisClient.SetEx(ctx, key, data, ttl)
	}
}

// invalidateUserCache drops every cached read for a user. Called on any
// wallet, invoice or transaction mutation.
func invalidateUserCache(ctx context.Context, userID int64) {
	if redisClient == nil {
		return
	}
	redisClient.Del(ctx,
		transactionsCacheKey(userID),
		analyticsCacheKey(userID, "7d"),
		analyticsCacheKey(userID, "30d"),
		analyticsCacheKey(userID, "365d"),
	)
}
