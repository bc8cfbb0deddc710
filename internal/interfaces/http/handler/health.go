// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
	"cloudeasyml-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg       *postgres.Client
	redis    *redis.Client
	registry *registry.Registry
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, reg *registry.Registry) *HealthHandler {
	return &HealthHandler{
		pg:       pg,
		redis:    redisClient,
		registry: reg,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	ModelsLoaded int       `json:"models_loaded"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 返回服务状态与已注册模型数量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		ModelsLoaded: h.modelsLoaded(),
	})
}

func (h *HealthHandler) modelsLoaded() int {
	if h == nil || h.registry == nil {
		return 0
	}
	return h.registry.RegisteredCount()
}

// Models 已加载模型的健康状态
// @Summary 模型健康检查
// @Tags System
// @Produce json
// @Router /health/models [get]
func (h *HealthHandler) Models(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	models := map[string]map[string]any{}
	if h != nil && h.registry != nil {
		models = h.registry.HealthCheck(ctx)
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"models": models,
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"database": {Status: "unknown"},
		"redis":    {Status: "disabled"},
	}

	ready := true

	// 数据库（必需）
	if h == nil || h.pg == nil {
		checks["database"].Status = "missing"
		checks["database"].Error = "database client not configured"
		ready = false
	} else {
		start := time.Now()
		err := h.pg.HealthCheck(ctx)
		checks["database"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["database"].Status = "error"
			checks["database"].Error = err.Error()
			ready = false
		} else {
			checks["database"].Status = "ok"
		}
	}

	// Redis（可选，单机模式下未启用）
	if h != nil && h.redis != nil {
		start := time.Now()
		err := h.redis.HealthCheck(ctx)
		checks["redis"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["redis"].Status = "error"
			checks["redis"].Error = err.Error()
			ready = false
		} else {
			checks["redis"].Status = "ok"
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
