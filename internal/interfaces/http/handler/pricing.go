// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/infrastructure/persistence/redis"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/pkg/logger"
)

// PricingHandler 费率处理器
type PricingHandler struct {
	pricing *billing.PricingEngine
	cache   CatalogCache
	ttl     time.Duration
}

// NewPricingHandler 创建费率处理器，cache 为空时直接读费率引擎
func NewPricingHandler(pricing *billing.PricingEngine, cache CatalogCache, ttl time.Duration) *PricingHandler {
	return &PricingHandler{pricing: pricing, cache: cache, ttl: ttl}
}

// ListPricing 全部费率
// @Summary 费率表
// @Tags Pricing
// @Produce json
// @Success 200 {object} dto.Response[dto.PricingResponse]
// @Router /v1/pricing [get]
func (h *PricingHandler) ListPricing(c *gin.Context) {
	dto.Success(c, &dto.PricingResponse{Tariffs: h.listTariffs(c.Request.Context())})
}

// listTariffs 优先读缓存，缓存异常时回退费率引擎
func (h *PricingHandler) listTariffs(ctx context.Context) map[string]billing.Tariff {
	if h.cache == nil || h.ttl <= 0 {
		return h.pricing.Tariffs()
	}

	raw, err := h.cache.GetOrLoadSafe(ctx, redis.BuildPricingKey(), h.ttl, func() (any, error) {
		return h.pricing.Tariffs(), nil
	})
	if err != nil {
		logger.Warn(ctx, "pricing cache unavailable", "error", err)
		return h.pricing.Tariffs()
	}

	var tariffs map[string]billing.Tariff
	if err := json.Unmarshal(raw, &tariffs); err != nil {
		logger.Warn(ctx, "failed to decode cached pricing", "error", err)
		return h.pricing.Tariffs()
	}
	return tariffs
}

// GetPricing 单个模型费率，未配置时返回默认费率
// @Summary 模型费率
// @Tags Pricing
// @Produce json
// @Param model path string true "模型名"
// @Success 200 {object} dto.Response[dto.ModelPricingResponse]
// @Router /v1/pricing/{model} [get]
func (h *PricingHandler) GetPricing(c *gin.Context) {
	model := dto.BindModelName(c)
	dto.Success(c, &dto.ModelPricingResponse{
		Model:    model,
		Tariff:   h.pricing.GetPricing(model),
		Fallback: !h.pricing.HasTariff(model),
	})
}

// UpdatePricing 更新模型费率，只影响之后的计费
// @Summary 更新费率
// @Tags Pricing
// @Accept json
// @Produce json
// @Param model path string true "模型名"
// @Param body body dto.UpdatePricingRequest true "费率"
// @Success 200 {object} dto.Response[dto.ModelPricingResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/pricing/{model} [put]
func (h *PricingHandler) UpdatePricing(c *gin.Context) {
	var req dto.UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	model := dto.BindModelName(c)
	tariff := billing.Tariff{
		PerRequest: *req.PerRequest,
		PerSecond:  *req.PerSecond,
		PerGPUHour: *req.PerGPUHour,
	}
	ctx := c.Request.Context()
	h.pricing.UpdatePricing(model, tariff)
	if h.cache != nil {
		if err := h.cache.InvalidatePricing(ctx); err != nil {
			logger.Warn(ctx, "failed to invalidate pricing cache", "error", err)
		}
	}
	logger.Info(ctx, "pricing updated",
		"model", model,
		"per_request", tariff.PerRequest,
		"per_second", tariff.PerSecond,
		"per_gpu_hour", tariff.PerGPUHour,
	)

	dto.Success(c, &dto.ModelPricingResponse{Model: model, Tariff: tariff})
}
