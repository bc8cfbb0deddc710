package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
)

type stubPublisher struct {
	events []*messaging.UsageEventMessage
	err    error
}

func (s *stubPublisher) PublishUsage(_ context.Context, event *messaging.UsageEventMessage) (string, error) {
	s.events = append(s.events, event)
	return "1-0", s.err
}

func newTestTracker(t *testing.T, publisher UsagePublisher) (*UsageTracker, *postgres.Client) {
	t.Helper()
	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:      "sqlite",
		SQLite:      config.SQLiteConfig{Path: ":memory:"},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := postgres.NewUsageRecordRepository(client)
	return NewUsageTracker(repo, NewPricingEngine(nil), publisher), client
}

func TestCalculateCost(t *testing.T) {
	p := NewPricingEngine(nil)

	assert.InDelta(t, 0.001+0.0001, p.CalculateCost("default", 1000, 1, 0), 1e-12)
	assert.InDelta(t, 0.002+0.0002*2.5, p.CalculateCost("housingCrisis", 2500, 1, 0), 1e-12)
	assert.InDelta(t, 0.001*3+0.5*2, p.CalculateCost("default", 0, 3, 2), 1e-12)

	// 未配置模型回落到默认费率
	assert.Equal(t, p.CalculateCost("default", 1000, 1, 0), p.CalculateCost("unknownModel", 1000, 1, 0))
}

func TestPricingEngine_ConfigAndUpdate(t *testing.T) {
	p := NewPricingEngine(&config.PricingConfig{Tariffs: []config.TariffConfig{
		{Model: "housingCrisis", PerRequest: 0.01},
		{Model: "gnn", PerRequest: 0.05, PerGPUHour: 2},
	}})

	assert.Equal(t, 0.01, p.GetPricing("housingCrisis").PerRequest)
	assert.True(t, p.HasTariff("gnn"))

	tariffs := p.Tariffs()
	tariffs["default"] = Tariff{}
	assert.Equal(t, 0.001, p.GetPricing("default").PerRequest, "copy must not alias")

	p.UpdatePricing("gnn", Tariff{PerRequest: 0.07})
	assert.Equal(t, 0.07, p.GetPricing("gnn").PerRequest)
	assert.Zero(t, p.GetPricing("gnn").PerGPUHour)
}

func TestTrackRequest_SnapshotsCost(t *testing.T) {
	pub := &stubPublisher{}
	tracker, client := newTestTracker(t, pub)
	repo := postgres.NewUsageRecordRepository(client)
	ctx := context.Background()

	record, err := tracker.TrackRequest(ctx, "u1", "d1", "housingCrisis", 500, map[string]any{"input_size": 10})
	require.NoError(t, err)
	assert.Equal(t, 1, record.RequestCount)
	assert.Zero(t, record.GPUHours)
	assert.InDelta(t, 0.002+0.0001, record.Cost, 1e-12)

	// 调整费率不影响已有记录
	tracker.pricing.UpdatePricing("housingCrisis", Tariff{PerRequest: 1})
	stored, err := repo.GetByID(ctx, record.RecordID)
	require.NoError(t, err)
	assert.InDelta(t, record.Cost, stored.Cost, 1e-12)

	require.Len(t, pub.events, 1)
	assert.Equal(t, record.RecordID, pub.events[0].RecordID)
}

func TestTrackRequest_PublishFailureIsNotFatal(t *testing.T) {
	tracker, _ := newTestTracker(t, &stubPublisher{err: errors.New("redis down")})

	record, err := tracker.TrackRequest(context.Background(), "u1", "d1", "default", 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, record.RecordID)
}

func TestGetUserCosts_Aggregation(t *testing.T) {
	tracker, _ := newTestTracker(t, nil)
	ctx := context.Background()

	var want float64
	for i, model := range []string{"housingCrisis", "housingCrisis", "default"} {
		record, err := tracker.TrackRequest(ctx, "u1", "d1", model, float64(100*(i+1)), nil)
		require.NoError(t, err)
		want += record.Cost
	}
	_, err := tracker.TrackRequest(ctx, "u2", "d2", "default", 100, nil)
	require.NoError(t, err)

	summary, err := tracker.GetUserCosts(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, want, summary.TotalCost, 1e-12)
	assert.Equal(t, 3, summary.TotalRequests)
	assert.InDelta(t, 600, summary.TotalProcessingTimeMs, 1e-9)
	require.Contains(t, summary.ByModel, "housingCrisis")
	assert.Equal(t, 2, summary.ByModel["housingCrisis"].Requests)
	assert.Equal(t, 1, summary.ByModel["default"].Requests)
}

func TestGetUserCosts_InclusiveRange(t *testing.T) {
	tracker, client := newTestTracker(t, nil)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	for d := 1; d <= 5; d++ {
		record, err := tracker.TrackRequest(ctx, "u1", "d1", "default", 1000, nil)
		require.NoError(t, err)
		record.Timestamp = day(d)
		require.NoError(t, client.DB().Save(record).Error)
	}

	start, end := day(2), day(4)
	summary, err := tracker.GetUserCosts(ctx, "u1", &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRequests)
	assert.InDelta(t, 3*(0.001+0.0001), summary.TotalCost, 1e-12)
	assert.Equal(t, &start, summary.Period.StartDate)

	empty, err := tracker.GetUserCosts(ctx, "nobody", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCost)
	assert.Empty(t, empty.ByModel)
}
