// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"cloudeasyml-api/internal/domain/entity"
)

// KeyWarning 签发 Key 时的提示
const KeyWarning = "Save this key securely. It won't be shown again."

// CreateAPIKeyRequest 签发 API Key 请求
type CreateAPIKeyRequest struct {
	Name          string          `json:"name" binding:"required,max=128"`
	ExpiresInDays *int            `json:"expires_in_days"`
	RateLimit     int64           `json:"rate_limit" binding:"omitempty,min=1"`
	Permissions   map[string]bool `json:"permissions"`
}

// APIKeyResponse API Key 元数据，不含摘要
type APIKeyResponse struct {
	KeyID       string         `json:"key_id"`
	UserID      string         `json:"user_id"`
	Name        string         `json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	IsActive    bool           `json:"is_active"`
	Permissions map[string]any `json:"permissions"`
	RateLimit   int64          `json:"rate_limit"`
	UsageCount  int64          `json:"usage_count"`
}

// CreateAPIKeyResponse 签发结果，完整密钥只返回这一次
type CreateAPIKeyResponse struct {
	APIKey   string          `json:"api_key"`
	Metadata *APIKeyResponse `json:"metadata"`
	Warning  string          `json:"warning"`
}

// APIKeyListResponse API Key 列表
type APIKeyListResponse struct {
	APIKeys []*APIKeyResponse `json:"api_keys"`
}

// ToAPIKeyResponse 实体转换为响应
func ToAPIKeyResponse(k *entity.APIKey) *APIKeyResponse {
	if k == nil {
		return nil
	}
	return &APIKeyResponse{
		KeyID:       k.KeyID,
		UserID:      k.UserID,
		Name:        k.Name,
		CreatedAt:   k.CreatedAt,
		ExpiresAt:   k.ExpiresAt,
		IsActive:    k.IsActive,
		Permissions: k.Permissions,
		RateLimit:   k.RateLimit,
		UsageCount:  k.UsageCount,
	}
}

// ToAPIKeyListResponse 实体列表转换为响应
func ToAPIKeyListResponse(keys []*entity.APIKey) *APIKeyListResponse {
	items := make([]*APIKeyResponse, len(keys))
	for i, k := range keys {
		items[i] = ToAPIKeyResponse(k)
	}
	return &APIKeyListResponse{APIKeys: items}
}
