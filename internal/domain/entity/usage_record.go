// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UsageRecord 用量记录，只追加不修改
// Cost 为记录时刻按费率计算的快照
type UsageRecord struct {
	RecordID         string            `json:"record_id" gorm:"type:varchar(36);primaryKey"`
	UserID           string            `json:"user_id" gorm:"type:varchar(36);not null;index:idx_usage_user_ts,priority:1"`
	DeploymentID     string            `json:"deployment_id" gorm:"type:varchar(36);index"`
	ModelName        string            `json:"model_name" gorm:"type:varchar(128);not null"`
	Timestamp        time.Time         `json:"timestamp" gorm:"not null;index:idx_usage_user_ts,priority:2"`
	ProcessingTimeMs float64           `json:"processing_time_ms" gorm:"not null"`
	RequestCount     int               `json:"request_count" gorm:"not null"`
	GPUHours         float64           `json:"gpu_hours" gorm:"not null"`
	Cost             float64           `json:"cost" gorm:"not null"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
}

// TableName 表名
func (UsageRecord) TableName() string {
	return "usage_records"
}

// NewUsageRecord 创建单次请求的用量记录
func NewUsageRecord(userID, deploymentID, modelName string, processingTimeMs, cost float64, metadata map[string]any) *UsageRecord {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &UsageRecord{
		RecordID:         uuid.NewString(),
		UserID:           userID,
		DeploymentID:     deploymentID,
		ModelName:        modelName,
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: processingTimeMs,
		RequestCount:     1,
		Cost:             cost,
		Metadata:         datatypes.JSONMap(metadata),
	}
}
