// Package postgres 提供基于 GORM 的数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
)

var _ repository.APIKeyRepository = (*APIKeyRepository)(nil)

// APIKeyRepository API Key 仓储实现
type APIKeyRepository struct {
	client *Client
}

// NewAPIKeyRepository 创建 API Key 仓储
func NewAPIKeyRepository(client *Client) *APIKeyRepository {
	return &APIKeyRepository{client: client}
}

// Create 保存新签发的 Key
func (r *APIKeyRepository) Create(ctx context.Context, key *entity.APIKey) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(key).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetByKeyID 按公开 ID 查询
func (r *APIKeyRepository) GetByKeyID(ctx context.Context, keyID string) (*entity.APIKey, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.GetByKeyID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var key entity.APIKey
	if err := db.First(&key, "key_id = ?", keyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// ListByUser 按创建顺序返回用户全部 Key
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var keys []*entity.APIKey
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&keys).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// IncrementUsage 无条件累加用量
// 使用 SQL 表达式累加，并发请求不会互相覆盖
func (r *APIKeyRepository) IncrementUsage(ctx context.Context, keyID string) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.IncrementUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.APIKey{}).
		Where("key_id = ?", keyID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment api key usage: %w", err)
	}
	return nil
}

// ConsumeQuota 用量低于上限时原子累加
// 检查与累加在同一条 UPDATE 中完成，命中行数为 0 表示已达上限
func (r *APIKeyRepository) ConsumeQuota(ctx context.Context, keyID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.ConsumeQuota")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.APIKey{}).
		Where("key_id = ? AND usage_count < rate_limit", keyID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to consume api key quota: %w", result.Error)
	}

	admitted := result.RowsAffected == 1
	span.SetAttributes(attribute.Bool("apikey.admitted", admitted))
	return admitted, nil
}

// ReleaseQuota 归还一次配额
func (r *APIKeyRepository) ReleaseQuota(ctx context.Context, keyID string) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.ReleaseQuota")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.APIKey{}).
		Where("key_id = ? AND usage_count > 0", keyID).
		UpdateColumn("usage_count", gorm.Expr("usage_count - ?", 1)).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release api key quota: %w", err)
	}
	return nil
}

// Deactivate 吊销 Key
func (r *APIKeyRepository) Deactivate(ctx context.Context, keyID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.Deactivate")
	defer span.End()

	return r.deactivate(getDB(ctx, r.client.db).Model(&entity.APIKey{}).Where("key_id = ?", keyID), span)
}

// DeactivateForUser 仅吊销属于该用户的 Key
func (r *APIKeyRepository) DeactivateForUser(ctx context.Context, userID, keyID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.DeactivateForUser")
	defer span.End()

	return r.deactivate(getDB(ctx, r.client.db).Model(&entity.APIKey{}).Where("key_id = ? AND user_id = ?", keyID, userID), span)
}

func (r *APIKeyRepository) deactivate(query *gorm.DB, span trace.Span) (bool, error) {
	result := query.UpdateColumn("is_active", false)
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to revoke api key: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
