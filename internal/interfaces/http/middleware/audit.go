// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/pkg/logger"
)

// AuditPublisher 审计事件发布者
type AuditPublisher interface {
	PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error)
}

// AuditConfig 审计配置
type AuditConfig struct {
	// Enabled 是否启用审计
	Enabled bool
	// SkipPaths 跳过审计的路径
	SkipPaths []string
}

// Audit 审计日志中间件
// 所有请求写结构化日志，变更类请求额外发布到审计流
func Audit(cfg AuditConfig, publisher AuditPublisher) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 构建跳过路径映射
	skipMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		ctx := c.Request.Context()
		logger.Info(ctx, "api audit",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
			"user_id", GetUserID(c),
			"key_id", c.GetString(ContextKeyID),
			"request_id", c.GetString("request_id"),
		)

		if publisher == nil || c.Request.Method == http.MethodGet || GetUserID(c) == "" {
			return
		}

		event := &messaging.AuditLogMessage{
			UserID:       GetUserID(c),
			KeyID:        c.GetString(ContextKeyID),
			Action:       c.Request.Method,
			ResourceType: c.FullPath(),
			ResourceID:   auditResourceID(c),
			RequestID:    c.GetString("request_id"),
			TraceID:      c.GetString("trace_id"),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			StatusCode:   c.Writer.Status(),
			Metadata: map[string]any{
				"duration_ms": duration.Milliseconds(),
			},
		}
		if _, err := publisher.PublishAuditLog(ctx, event); err != nil {
			logger.Warn(ctx, "failed to publish audit event", "error", err)
		}
	}
}

// auditResourceID 取路由中的资源 ID
func auditResourceID(c *gin.Context) string {
	for _, name := range []string{"id", "keyId", "model"} {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	return ""
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
