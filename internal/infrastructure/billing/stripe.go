// Package billing 将用量导出到外部计费系统
package billing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/pkg/metrics"
)

var tracer = otel.Tracer("billing")

// DefaultUnitsPerDollar 每美元对应的计量单位
const DefaultUnitsPerDollar = 10000

// UsageRecordCreator Stripe 计量记录接口
type UsageRecordCreator interface {
	New(params *stripe.UsageRecordParams) (*stripe.UsageRecord, error)
}

// UsageReport 一次导出请求
type UsageReport struct {
	RecordID           string
	SubscriptionItemID string
	Cost               float64
	Timestamp          time.Time
}

// StripeReporter 将用量成本折算为计量单位上报 Stripe
type StripeReporter struct {
	records        UsageRecordCreator
	unitsPerDollar float64
}

// NewStripeReporter 根据配置创建上报器
func NewStripeReporter(cfg *config.StripeConfig) (*StripeReporter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stripe API key is required")
	}

	sc := &client.API{}
	sc.Init(cfg.APIKey, nil)

	return NewStripeReporterWith(sc.UsageRecords, cfg.UnitsPerDollar), nil
}

// NewStripeReporterWith 使用指定的记录接口创建上报器
func NewStripeReporterWith(records UsageRecordCreator, unitsPerDollar float64) *StripeReporter {
	if unitsPerDollar <= 0 {
		unitsPerDollar = DefaultUnitsPerDollar
	}
	return &StripeReporter{records: records, unitsPerDollar: unitsPerDollar}
}

// Quantity 成本折算为整数计量单位
func (r *StripeReporter) Quantity(cost float64) int64 {
	return int64(math.Round(cost * r.unitsPerDollar))
}

// Report 上报一条用量，数量为 0 时跳过
func (r *StripeReporter) Report(ctx context.Context, report UsageReport) error {
	_, span := tracer.Start(ctx, "billing.StripeReporter.Report")
	defer span.End()

	quantity := r.Quantity(report.Cost)
	span.SetAttributes(
		attribute.String("billing.record_id", report.RecordID),
		attribute.Int64("billing.quantity", quantity),
	)
	if quantity <= 0 {
		metrics.BillingExportTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	params := &stripe.UsageRecordParams{
		SubscriptionItem: stripe.String(report.SubscriptionItemID),
		Quantity:         stripe.Int64(quantity),
		Timestamp:        stripe.Int64(report.Timestamp.Unix()),
		Action:           stripe.String("increment"),
	}
	// 以记录 ID 做幂等键，重复投递不会重复计费
	params.SetIdempotencyKey(report.RecordID)

	if _, err := r.records.New(params); err != nil {
		span.RecordError(err)
		metrics.BillingExportTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to report usage to stripe: %w", err)
	}

	metrics.BillingExportTotal.WithLabelValues("success").Inc()
	return nil
}
