// Package postgres 提供基于 GORM 的数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
)

var _ repository.UsageRecordRepository = (*UsageRecordRepository)(nil)

// UsageRecordRepository 用量记录仓储实现
type UsageRecordRepository struct {
	client *Client
}

// NewUsageRecordRepository 创建用量记录仓储
func NewUsageRecordRepository(client *Client) *UsageRecordRepository {
	return &UsageRecordRepository{client: client}
}

// Create 追加一条记录
func (r *UsageRecordRepository) Create(ctx context.Context, record *entity.UsageRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage record: %w", err)
	}
	return nil
}

// GetByID 获取记录
func (r *UsageRecordRepository) GetByID(ctx context.Context, recordID string) (*entity.UsageRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var record entity.UsageRecord
	if err := db.First(&record, "record_id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return &record, nil
}

// ListByUser 按时间顺序返回用户在区间内的记录
func (r *UsageRecordRepository) ListByUser(ctx context.Context, userID string, filter repository.UsageFilter) ([]*entity.UsageRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var records []*entity.UsageRecord
	if err := applyUsageFilter(db.Where("user_id = ?", userID), filter).
		Order("timestamp ASC").
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	return records, nil
}

// ListByUserPaged 分页返回用户记录
func (r *UsageRecordRepository) ListByUserPaged(ctx context.Context, userID string, filter repository.UsageFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.ListByUserPaged")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := applyUsageFilter(db.Model(&entity.UsageRecord{}).Where("user_id = ?", userID), filter)

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count usage records: %w", err)
	}

	var records []*entity.UsageRecord
	if err := query.Order("timestamp DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	return repository.NewPagedResult(records, total, pagination), nil
}

// applyUsageFilter 追加时间区间条件，两端包含
// 时间统一转为 UTC，保证 SQLite 文本比较与写入格式一致
func applyUsageFilter(query *gorm.DB, filter repository.UsageFilter) *gorm.DB {
	if filter.Start != nil {
		query = query.Where("timestamp >= ?", filter.Start.UTC())
	}
	if filter.End != nil {
		query = query.Where("timestamp <= ?", filter.End.UTC())
	}
	return query
}
