package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// rateLimitPrefix namespaces limiter keys in a shared store.
const rateLimitPrefix = "modlicense:ratelimit"

func parseRate(requests int64, period string) (limiter.Rate, error) {
	duration, err := time.ParseDuration(period)
	if err != nil {
		return limiter.Rate{}, fmt.Errorf("invalid rate limit period %q: %w", period, err)
	}
	if requests <= 0 {
		return limiter.Rate{}, fmt.Errorf("rate limit requests must be positive, got %d", requests)
	}
	return limiter.Rate{Period: duration, Limit: requests}, nil
}

// NewRateLimiter creates a Gin middleware for per-client-IP rate limiting backed
// by process memory. period is a duration string (e.g., "1m", "1h").
func NewRateLimiter(requests int64, period string) (gin.HandlerFunc, error) {
	rate, err := parseRate(requests, period)
	if err != nil {
		return nil, err
	}

	store := memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}

// NewRedisRateLimiter creates a rate limiting middleware whose counters live in
// Redis, so limits hold across server replicas.
func NewRedisRateLimiter(client *redis.Client, requests int64, period string) (gin.HandlerFunc, error) {
	rate, err := parseRate(requests, period)
	if err != nil {
		return nil, err
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}
