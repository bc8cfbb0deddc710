// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/infrastructure/persistence/redis"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/pkg/logger"
)

// CatalogCache 模型目录与费率表的读穿缓存
type CatalogCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error)
	InvalidateModels(ctx context.Context) error
	InvalidatePricing(ctx context.Context) error
}

// ModelHandler 模型目录处理器
type ModelHandler struct {
	registry *registry.Registry
	cache    CatalogCache
	ttl      time.Duration
}

// NewModelHandler 创建模型目录处理器，cache 为空时直接读注册表
func NewModelHandler(reg *registry.Registry, cache CatalogCache, ttl time.Duration) *ModelHandler {
	return &ModelHandler{registry: reg, cache: cache, ttl: ttl}
}

// ListModels 列出可部署模型
// @Summary 模型列表
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[dto.ModelListResponse]
// @Router /v1/models [get]
func (h *ModelHandler) ListModels(c *gin.Context) {
	dto.Success(c, &dto.ModelListResponse{Models: h.listModels(c.Request.Context())})
}

// ReloadModels 重新加载全部插件
// @Summary 重载模型插件
// @Tags Models
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response[dto.ModelReloadResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/models/reload [post]
func (h *ModelHandler) ReloadModels(c *gin.Context) {
	ctx := c.Request.Context()
	loaded := h.registry.LoadAllPlugins(ctx)
	if loaded == nil {
		loaded = []string{}
	}
	h.invalidate(ctx)
	logger.Info(ctx, "model plugins reloaded", "loaded", loaded)

	dto.Success(c, &dto.ModelReloadResponse{Loaded: loaded})
}

// UnloadModel 卸载已加载的模型，之后的推理会按需重新加载
// @Summary 卸载模型
// @Tags Models
// @Produce json
// @Security BearerAuth
// @Param model path string true "模型名"
// @Success 200 {object} dto.Response[dto.ModelUnloadResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/models/{model} [delete]
func (h *ModelHandler) UnloadModel(c *gin.Context) {
	ctx := c.Request.Context()
	model := dto.BindModelName(c)
	if err := h.registry.UnloadModel(ctx, model); err != nil {
		HandleError(c, err)
		return
	}
	h.invalidate(ctx)

	dto.Success(c, &dto.ModelUnloadResponse{Model: model, Unloaded: true})
}

// invalidate 目录变化后清理缓存，失败只记录
func (h *ModelHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateModels(ctx); err != nil {
		logger.Warn(ctx, "failed to invalidate model list cache", "error", err)
	}
}

// listModels 优先读缓存，缓存异常时回退注册表
func (h *ModelHandler) listModels(ctx context.Context) []registry.Metadata {
	if h.cache == nil || h.ttl <= 0 {
		return h.registry.ListModels()
	}

	raw, err := h.cache.GetOrLoadSafe(ctx, redis.BuildModelListKey(), h.ttl, func() (any, error) {
		return h.registry.ListModels(), nil
	})
	if err != nil {
		logger.Warn(ctx, "model list cache unavailable", "error", err)
		return h.registry.ListModels()
	}

	var models []registry.Metadata
	if err := json.Unmarshal(raw, &models); err != nil {
		logger.Warn(ctx, "failed to decode cached model list", "error", err)
		return h.registry.ListModels()
	}
	return models
}
