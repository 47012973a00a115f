package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pauldariye/greenhouse-proxy-server/internal/delivery/http/response"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/apperror"
	"github.com/pauldariye/greenhouse-proxy-server/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:ip:")
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
}

// rateLimitEntry tracks request count for a key (in-memory fallback)
type rateLimitEntry struct {
	count   int
	resetAt time.Time
	mu      sync.Mutex
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// DefaultRateLimitConfig allows limit requests per window per client IP
func DefaultRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:ip:",
		FailClosed: false, // Fail open by default for availability
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimiter counts requests in fixed windows. Counters live in Redis when a
// client is supplied and in process memory otherwise.
type RateLimiter struct {
	config      RateLimitConfig
	redisClient *goredis.Client
	secLogger   *security.SecurityLogger
	store       sync.Map
	cleanupOnce sync.Once
}

func NewRateLimiter(config RateLimitConfig, redisClient *goredis.Client, secLogger *security.SecurityLogger) *RateLimiter {
	return &RateLimiter{
		config:      config,
		redisClient: redisClient,
		secLogger:   secLogger,
	}
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	rl.cleanupOnce.Do(rl.startCleanup)

	return func(c *gin.Context) {
		fullKey := rl.config.KeyPrefix + rl.config.KeyFunc(c)
		now := time.Now()

		var count int
		var resetAt time.Time
		var err error

		if rl.redisClient != nil {
			count, resetAt, err = rl.checkRedis(c.Request.Context(), fullKey)
			if err != nil {
				rl.logDegraded(c, err)
				if rl.config.FailClosed {
					response.AbortWithError(c, http.StatusServiceUnavailable, apperror.CodeRateLimited, "Service temporarily unavailable. Please try again.")
					return
				}
				count, resetAt = rl.checkInMemory(fullKey, now)
			}
		} else {
			count, resetAt = rl.checkInMemory(fullKey, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count > rl.config.Limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			if rl.secLogger != nil {
				rl.secLogger.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"),
					c.GetString(response.RequestIDKey), c.FullPath())
			}

			response.AbortWithError(c, http.StatusTooManyRequests, apperror.CodeRateLimited, "Rate limit exceeded. Please try again later.")
			return
		}

		remaining := rl.config.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

// checkRedis checks rate limit using Redis with atomic Lua script
func (rl *RateLimiter) checkRedis(ctx context.Context, key string) (int, time.Time, error) {
	ttlSeconds := int(rl.config.Window.Seconds())

	result, err := rl.redisClient.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

// checkInMemory checks rate limit using the in-process store
func (rl *RateLimiter) checkInMemory(key string, now time.Time) (int, time.Time) {
	entryI, _ := rl.store.LoadOrStore(key, &rateLimitEntry{
		resetAt: now.Add(rl.config.Window),
	})
	entry := entryI.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.resetAt) {
		entry.count = 0
		entry.resetAt = now.Add(rl.config.Window)
	}
	entry.count++

	return entry.count, entry.resetAt
}

// startCleanup drops expired in-memory windows every few minutes
func (rl *RateLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			now := time.Now()
			rl.store.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimitEntry)
				entry.mu.Lock()
				if now.After(entry.resetAt) {
					rl.store.Delete(key)
				}
				entry.mu.Unlock()
				return true
			})
		}
	}()
}

func (rl *RateLimiter) logDegraded(c *gin.Context, err error) {
	if rl.secLogger == nil {
		return
	}
	rl.secLogger.Log(c.Request.Context(), security.SecurityEvent{
		Event:       security.EventRateLimitDegraded,
		SubjectType: "ip",
		IP:          c.ClientIP(),
		RequestID:   c.GetString(response.RequestIDKey),
		Details: map[string]interface{}{
			"error": err.Error(),
		},
	})
}
