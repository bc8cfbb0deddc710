// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"cloudeasyml-api/internal/domain/entity"
)

// APIKeyRepository API Key 仓储接口
type APIKeyRepository interface {
	// Create 保存新签发的 Key
	Create(ctx context.Context, key *entity.APIKey) error

	// GetByKeyID 按公开 ID 查询，不存在时返回 nil, nil
	GetByKeyID(ctx context.Context, keyID string) (*entity.APIKey, error)

	// ListByUser 按创建顺序返回用户全部 Key
	ListByUser(ctx context.Context, userID string) ([]*entity.APIKey, error)

	// IncrementUsage 无条件累加用量
	IncrementUsage(ctx context.Context, keyID string) error

	// ConsumeQuota 用量低于上限时原子累加，返回是否成功
	ConsumeQuota(ctx context.Context, keyID string) (bool, error)

	// ReleaseQuota 归还一次已占用的配额，用量不低于 0
	ReleaseQuota(ctx context.Context, keyID string) error

	// Deactivate 吊销 Key，返回是否存在
	Deactivate(ctx context.Context, keyID string) (bool, error)

	// DeactivateForUser 仅吊销属于该用户的 Key
	DeactivateForUser(ctx context.Context, userID, keyID string) (bool, error)
}
