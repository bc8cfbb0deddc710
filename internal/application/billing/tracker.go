package billing

import (
	"context"
	"time"

	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/pkg/logger"
	"cloudeasyml-api/pkg/metrics"
)

// UsagePublisher 用量事件发布接口
type UsagePublisher interface {
	PublishUsage(ctx context.Context, event *messaging.UsageEventMessage) (string, error)
}

// ModelUsage 单模型汇总
type ModelUsage struct {
	Requests         int     `json:"requests"`
	Cost             float64 `json:"cost"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// Period 查询区间
type Period struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// CostSummary 用户成本汇总
type CostSummary struct {
	UserID                string                 `json:"user_id"`
	TotalCost             float64                `json:"total_cost"`
	TotalRequests         int                    `json:"total_requests"`
	TotalProcessingTimeMs float64                `json:"total_processing_time_ms"`
	ByModel               map[string]*ModelUsage `json:"by_model"`
	Period                Period                 `json:"period"`
}

// UsageTracker 记录每次请求的用量与成本
type UsageTracker struct {
	repo      repository.UsageRecordRepository
	pricing   *PricingEngine
	publisher UsagePublisher
}

// NewUsageTracker 创建用量追踪器，publisher 可为 nil
func NewUsageTracker(repo repository.UsageRecordRepository, pricing *PricingEngine, publisher UsagePublisher) *UsageTracker {
	return &UsageTracker{
		repo:      repo,
		pricing:   pricing,
		publisher: publisher,
	}
}

// TrackRequest 记录一次请求
func (t *UsageTracker) TrackRequest(ctx context.Context, userID, deploymentID, modelName string, processingTimeMs float64, metadata map[string]any) (*entity.UsageRecord, error) {
	cost := t.pricing.CalculateCost(modelName, processingTimeMs, 1, 0)
	record := entity.NewUsageRecord(userID, deploymentID, modelName, processingTimeMs, cost, metadata)

	if err := t.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	metrics.UsageRecordsTotal.WithLabelValues(modelName).Inc()
	metrics.UsageCostTotal.WithLabelValues(modelName).Add(cost)

	if t.publisher != nil {
		event := &messaging.UsageEventMessage{
			RecordID:         record.RecordID,
			UserID:           record.UserID,
			DeploymentID:     record.DeploymentID,
			ModelName:        record.ModelName,
			ProcessingTimeMs: record.ProcessingTimeMs,
			Cost:             record.Cost,
			Timestamp:        record.Timestamp,
		}
		// 事件发布失败不影响已落库的记录
		if _, err := t.publisher.PublishUsage(ctx, event); err != nil {
			logger.Warn(ctx, "failed to publish usage event", "record_id", record.RecordID, "error", err)
		}
	}

	return record, nil
}

// GetUserCosts 汇总用户在区间内的成本，区间两端包含
func (t *UsageTracker) GetUserCosts(ctx context.Context, userID string, start, end *time.Time) (*CostSummary, error) {
	records, err := t.repo.ListByUser(ctx, userID, repository.UsageFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	summary := &CostSummary{
		UserID:  userID,
		ByModel: make(map[string]*ModelUsage),
		Period:  Period{StartDate: start, EndDate: end},
	}
	for _, r := range records {
		summary.TotalCost += r.Cost
		summary.TotalRequests += r.RequestCount
		summary.TotalProcessingTimeMs += r.ProcessingTimeMs

		usage, ok := summary.ByModel[r.ModelName]
		if !ok {
			usage = &ModelUsage{}
			summary.ByModel[r.ModelName] = usage
		}
		usage.Requests += r.RequestCount
		usage.Cost += r.Cost
		usage.ProcessingTimeMs += r.ProcessingTimeMs
	}
	return summary, nil
}

// ListRecords 分页列出用户的原始记录
func (t *UsageTracker) ListRecords(ctx context.Context, userID string, start, end *time.Time, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageRecord], error) {
	return t.repo.ListByUserPaged(ctx, userID, repository.UsageFilter{Start: start, End: end}, pagination)
}
