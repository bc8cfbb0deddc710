// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"cloudeasyml-api/internal/domain/entity"
)

// UsageRecordResponse 用量记录
type UsageRecordResponse struct {
	RecordID         string         `json:"record_id"`
	DeploymentID     string         `json:"deployment_id"`
	ModelName        string         `json:"model_name"`
	Timestamp        time.Time      `json:"timestamp"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	RequestCount     int            `json:"request_count"`
	GPUHours         float64        `json:"gpu_hours"`
	Cost             float64        `json:"cost"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ToUsageRecordResponses 实体列表转换为响应
func ToUsageRecordResponses(records []*entity.UsageRecord) []*UsageRecordResponse {
	items := make([]*UsageRecordResponse, len(records))
	for i, r := range records {
		items[i] = &UsageRecordResponse{
			RecordID:         r.RecordID,
			DeploymentID:     r.DeploymentID,
			ModelName:        r.ModelName,
			Timestamp:        r.Timestamp,
			ProcessingTimeMs: r.ProcessingTimeMs,
			RequestCount:     r.RequestCount,
			GPUHours:         r.GPUHours,
			Cost:             r.Cost,
			Metadata:         r.Metadata,
		}
	}
	return items
}
