package main

import (
	"context"
	"fmt"

	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/internal/infrastructure/billing"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/pkg/logger"
)

// UsageReporter 计量上报接口
type UsageReporter interface {
	Report(ctx context.Context, report billing.UsageReport) error
}

// NewUsageHandler 用量事件处理器
// 只有绑定了订阅项的用户才上报，reporter 为空时仅确认消息
func NewUsageHandler(users repository.UserRepository, reporter UsageReporter) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var event messaging.UsageEventMessage
		if err := msg.UnmarshalPayload(&event); err != nil {
			return fmt.Errorf("invalid usage event: %w", err)
		}
		if reporter == nil {
			return nil
		}

		user, err := users.GetByID(ctx, event.UserID)
		if err != nil {
			return err
		}
		if user == nil || !user.HasMeteredBilling() {
			logger.Debug(ctx, "usage event skipped, user has no metered billing",
				"user_id", event.UserID,
				"record_id", event.RecordID,
			)
			return nil
		}

		return reporter.Report(ctx, billing.UsageReport{
			RecordID:           event.RecordID,
			SubscriptionItemID: user.StripeSubscriptionItemID,
			Cost:               event.Cost,
			Timestamp:          event.Timestamp,
		})
	}
}

// HandleAuditEvent 审计事件写入结构化日志
func HandleAuditEvent(ctx context.Context, msg *messaging.Message) error {
	var event messaging.AuditLogMessage
	if err := msg.UnmarshalPayload(&event); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	logger.Info(ctx, "audit event",
		"user_id", event.UserID,
		"key_id", event.KeyID,
		"action", event.Action,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"status", event.StatusCode,
		"request_id", event.RequestID,
		"ip", event.IPAddress,
	)
	return nil
}
