// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"cloudeasyml-api/internal/domain/entity"
)

// UsageFilter 用量查询条件，时间区间两端均包含
type UsageFilter struct {
	Start *time.Time
	End   *time.Time
}

// UsageRecordRepository 用量记录仓储接口
type UsageRecordRepository interface {
	// Create 追加一条记录
	Create(ctx context.Context, record *entity.UsageRecord) error

	// GetByID 获取记录
	GetByID(ctx context.Context, recordID string) (*entity.UsageRecord, error)

	// ListByUser 按时间顺序返回用户在区间内的记录
	ListByUser(ctx context.Context, userID string, filter UsageFilter) ([]*entity.UsageRecord, error)

	// ListByUserPaged 分页返回用户记录，按时间倒序
	ListByUserPaged(ctx context.Context, userID string, filter UsageFilter, pagination Pagination) (*PagedResult[*entity.UsageRecord], error)
}
