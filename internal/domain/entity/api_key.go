// Package entity 定义领域实体
package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 预定义权限
const (
	PermissionPredict = "predict"
	PermissionDeploy  = "deploy"
)

// APIKey API Key 实体
// 只保存密钥后半段的 sha256 摘要，完整密钥仅在签发时返回一次
type APIKey struct {
	KeyID       string            `json:"key_id" gorm:"type:varchar(64);primaryKey"`
	KeyHash     string            `json:"-" gorm:"type:varchar(64);not null"`
	UserID      string            `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Name        string            `json:"name" gorm:"type:varchar(128)"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	IsActive    bool              `json:"is_active" gorm:"not null"`
	Permissions datatypes.JSONMap `json:"permissions"`
	RateLimit   int64             `json:"rate_limit" gorm:"not null"`
	UsageCount  int64             `json:"usage_count" gorm:"not null;default:0"`
}

// TableName 表名
func (APIKey) TableName() string {
	return "api_keys"
}

// IsExpired 检查在给定时间是否已过期
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// IsUsable 激活且未过期
func (k *APIKey) IsUsable(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}

// HasPermission 查询权限标记，缺省为 false
func (k *APIKey) HasPermission(name string) bool {
	if k.Permissions == nil {
		return false
	}
	granted, ok := k.Permissions[name].(bool)
	return ok && granted
}

// WithinRateLimit 累计用量是否仍低于上限
func (k *APIKey) WithinRateLimit() bool {
	return k.UsageCount < k.RateLimit
}

// Remaining 剩余可用次数
func (k *APIKey) Remaining() int64 {
	if k.UsageCount >= k.RateLimit {
		return 0
	}
	return k.RateLimit - k.UsageCount
}

// PermissionMap 将权限转为 map[string]bool
func PermissionMap(names []string) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(names))
	for _, name := range names {
		m[name] = true
	}
	return m
}
