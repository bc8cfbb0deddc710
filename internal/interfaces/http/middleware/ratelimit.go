// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/infrastructure/persistence/redis"
	"cloudeasyml-api/internal/interfaces/http/dto"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 突发限流中间件
// 按 API Key 计数，无 Key 时按用户，匿名请求按客户端 IP
// 与 Key 的累计调用上限相互独立
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}

	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		var key string
		switch {
		case c.GetString(ContextKeyID) != "":
			key = redis.BuildKeyRateLimitKey(c.GetString(ContextKeyID), endpoint)
		case GetUserID(c) != "":
			key = redis.BuildUserRateLimitKey(GetUserID(c), endpoint)
		default:
			key = redis.BuildUserRateLimitKey("ip:"+c.ClientIP(), endpoint)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerSecond, time.Second)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if !allowed {
			dto.AppError(c, apperrors.ErrRateLimitExceeded.WithDetail("burst rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
