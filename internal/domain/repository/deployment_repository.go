// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"cloudeasyml-api/internal/domain/entity"
)

// DeploymentRepository 部署仓储接口
type DeploymentRepository interface {
	// Create 创建部署
	Create(ctx context.Context, deployment *entity.Deployment) error

	// GetByID 获取部署，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Deployment, error)

	// ListByUser 获取用户部署列表
	ListByUser(ctx context.Context, userID string) ([]*entity.Deployment, error)

	// UpdateStatus 更新部署状态
	UpdateStatus(ctx context.Context, id string, status entity.DeploymentStatus) error
}
