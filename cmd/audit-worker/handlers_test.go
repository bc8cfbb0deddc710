package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/infrastructure/billing"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
)

type recordingReporter struct {
	reports []billing.UsageReport
}

func (r *recordingReporter) Report(_ context.Context, report billing.UsageReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func newUserRepo(t *testing.T) *postgres.UserRepository {
	t.Helper()
	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:      "sqlite",
		SQLite:      config.SQLiteConfig{Path: ":memory:"},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return postgres.NewUserRepository(client)
}

func usageMessage(t *testing.T, userID string, cost float64) *messaging.Message {
	t.Helper()
	msg, err := messaging.NewMessage("rec-1", messaging.MessageTypeUsage, userID, &messaging.UsageEventMessage{
		RecordID:  "rec-1",
		UserID:    userID,
		ModelName: "housingCrisis",
		Cost:      cost,
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return msg
}

func TestUsageHandler_ReportsMeteredUsers(t *testing.T) {
	ctx := context.Background()
	users := newUserRepo(t)

	metered := entity.NewUser("metered@example.com", "Metered")
	require.NoError(t, users.Create(ctx, metered))
	require.NoError(t, users.UpdateBilling(ctx, metered.ID, "cus_1", "si_1"))

	plain := entity.NewUser("plain@example.com", "Plain")
	require.NoError(t, users.Create(ctx, plain))

	reporter := &recordingReporter{}
	handle := NewUsageHandler(users, reporter)

	require.NoError(t, handle(ctx, usageMessage(t, metered.ID, 0.0025)))
	require.NoError(t, handle(ctx, usageMessage(t, plain.ID, 0.0025)))
	require.NoError(t, handle(ctx, usageMessage(t, "missing-user", 0.0025)))

	require.Len(t, reporter.reports, 1)
	assert.Equal(t, "si_1", reporter.reports[0].SubscriptionItemID)
	assert.Equal(t, "rec-1", reporter.reports[0].RecordID)
	assert.InDelta(t, 0.0025, reporter.reports[0].Cost, 1e-12)
}

func TestUsageHandler_WithoutReporterAcknowledges(t *testing.T) {
	handle := NewUsageHandler(newUserRepo(t), nil)
	assert.NoError(t, handle(context.Background(), usageMessage(t, "anyone", 1)))
}

func TestUsageHandler_RejectsMalformedPayload(t *testing.T) {
	handle := NewUsageHandler(newUserRepo(t), &recordingReporter{})
	msg := &messaging.Message{ID: "x", Type: messaging.MessageTypeUsage, Payload: []byte("not json")}
	assert.Error(t, handle(context.Background(), msg))
}

func TestHandleAuditEvent(t *testing.T) {
	msg, err := messaging.NewMessage("req-1", messaging.MessageTypeAudit, "user-1", &messaging.AuditLogMessage{
		UserID:       "user-1",
		Action:       "POST",
		ResourceType: "/v1/deployments",
		RequestID:    "req-1",
		StatusCode:   201,
	})
	require.NoError(t, err)
	assert.NoError(t, HandleAuditEvent(context.Background(), msg))

	bad := &messaging.Message{ID: "y", Type: messaging.MessageTypeAudit, Payload: []byte("{")}
	assert.Error(t, HandleAuditEvent(context.Background(), bad))
}
