package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests: максимальное количество запросов за Window
	MaxRequests int
	// Window: временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix: префикс для ключей в Redis
	KeyPrefix string
	// PerUser: для аутентифицированных запросов считать по user_id, а не по IP
	PerUser bool
}

// PerMinute: лимит maxRequests в минуту
func PerMinute(prefix string, maxRequests int, perUser bool) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      time.Minute,
		KeyPrefix:   prefix,
		PerUser:     perUser,
	}
}

// RateLimiter создаёт middleware для rate limiting на основе Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter. nil-клиент отключает ограничения.
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ: префикс + (user_id или IP) + шаблон маршрута.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.redisClient == nil || cfg.MaxRequests <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if cfg.PerUser {
			if userID, ok := UserID(c); ok {
				subject = "user:" + strconv.FormatUint(uint64(userID), 10)
			}
		}
		path := c.FullPath() // шаблон маршрута gin, например "/api/puzzles/submit"
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, subject, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// При ошибке Redis пропускаем запрос (fail-open), но логируем
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}

		// Первый запрос в окне: устанавливаем TTL
		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for %s path=%s. Count=%d, Limit=%d",
				subject, path, count, cfg.MaxRequests)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
