// Package postgres 提供基于 GORM 的数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
)

var _ repository.DeploymentRepository = (*DeploymentRepository)(nil)

// DeploymentRepository 部署仓储实现
type DeploymentRepository struct {
	client *Client
}

// NewDeploymentRepository 创建部署仓储
func NewDeploymentRepository(client *Client) *DeploymentRepository {
	return &DeploymentRepository{client: client}
}

// Create 创建部署
func (r *DeploymentRepository) Create(ctx context.Context, deployment *entity.Deployment) error {
	ctx, span := tracer.Start(ctx, "postgres.DeploymentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(deployment).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create deployment: %w", err)
	}
	return nil
}

// GetByID 获取部署
func (r *DeploymentRepository) GetByID(ctx context.Context, id string) (*entity.Deployment, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeploymentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var deployment entity.Deployment
	if err := db.First(&deployment, "deployment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return &deployment, nil
}

// ListByUser 获取用户部署列表
func (r *DeploymentRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Deployment, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeploymentRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var deployments []*entity.Deployment
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&deployments).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return deployments, nil
}

// UpdateStatus 更新部署状态
func (r *DeploymentRepository) UpdateStatus(ctx context.Context, id string, status entity.DeploymentStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.DeploymentRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Deployment{}).
		Where("deployment_id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deployment status: %w", err)
	}
	return nil
}
