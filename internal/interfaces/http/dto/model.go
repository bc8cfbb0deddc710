// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/registry"
)

// ModelListResponse 模型列表
type ModelListResponse struct {
	Models []registry.Metadata `json:"models"`
}

// ModelReloadResponse 插件重载结果
type ModelReloadResponse struct {
	Loaded []string `json:"loaded"`
}

// ModelUnloadResponse 模型卸载结果
type ModelUnloadResponse struct {
	Model    string `json:"model"`
	Unloaded bool   `json:"unloaded"`
}

// PricingResponse 全部费率
type PricingResponse struct {
	Tariffs map[string]billing.Tariff `json:"tariffs"`
}

// ModelPricingResponse 单个模型费率
type ModelPricingResponse struct {
	Model  string         `json:"model"`
	Tariff billing.Tariff `json:"tariff"`
	// Fallback 模型无单独费率，使用默认费率
	Fallback bool `json:"fallback"`
}

// UpdatePricingRequest 更新费率请求
type UpdatePricingRequest struct {
	PerRequest *float64 `json:"per_request" binding:"required,min=0"`
	PerSecond  *float64 `json:"per_second" binding:"required,min=0"`
	PerGPUHour *float64 `json:"per_gpu_hour" binding:"required,min=0"`
}
