package serving

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
	apperrors "cloudeasyml-api/pkg/errors"
)

// echoModel 原样返回输入
type echoModel struct {
	predictErr error
}

func (m *echoModel) Metadata() registry.Metadata {
	return registry.NewMetadata("echo", "0.1.0", "echo", "tests")
}
func (m *echoModel) Load(context.Context) error { return nil }
func (m *echoModel) Predict(_ context.Context, in registry.PredictionInput) (*registry.PredictionOutput, error) {
	if m.predictErr != nil {
		return nil, m.predictErr
	}
	return &registry.PredictionOutput{Predictions: in.Data, Metadata: map[string]any{}}, nil
}
func (m *echoModel) Train(_ context.Context, data registry.TrainingData, _ map[string]any) (map[string]any, error) {
	return map[string]any{"samples": len(data.X)}, nil
}
func (m *echoModel) Unload(context.Context) error { return nil }
func (m *echoModel) HealthCheck(context.Context) map[string]any {
	return registry.HealthStatus(m, true)
}

type fixture struct {
	svc     *Service
	keys    *apikey.Manager
	tracker *billing.UsageTracker
	model   *echoModel
	secrets map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:      "sqlite",
		SQLite:      config.SQLiteConfig{Path: ":memory:"},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	model := &echoModel{}
	reg := registry.NewRegistry(&config.PluginsConfig{Root: t.TempDir()}, nil)
	require.NoError(t, reg.RegisterModel("echo", func(map[string]any) registry.Model { return model }))

	keys := apikey.NewManager(postgres.NewAPIKeyRepository(client), &config.APIKeysConfig{DefaultRateLimit: 1000})
	tracker := billing.NewUsageTracker(postgres.NewUsageRecordRepository(client), billing.NewPricingEngine(nil), nil)

	return &fixture{
		svc:     NewService(postgres.NewDeploymentRepository(client), apikey.NewGate(keys), reg, tracker),
		keys:    keys,
		tracker: tracker,
		model:   model,
		secrets: map[string]string{},
	}
}

func (f *fixture) issueKey(t *testing.T, userID string, rateLimit int64, permissions map[string]bool) *entity.APIKey {
	t.Helper()
	fullKey, key, err := f.keys.GenerateKey(context.Background(), apikey.GenerateRequest{
		UserID:      userID,
		Name:        "test",
		RateLimit:   rateLimit,
		Permissions: permissions,
	})
	require.NoError(t, err)
	f.secrets[key.KeyID] = fullKey
	return key
}

func TestCreateDeployment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultModelVersion, d.ModelVersion)
	assert.Equal(t, "/predict/echo", d.Endpoint)
	assert.Equal(t, entity.DeploymentStatusActive, d.Status)

	_, err = f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrModelNotFound)

	_, err = f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	list, err := f.svc.ListDeployments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetDeployment_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDeployment(ctx, "owner", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	_, err = f.svc.GetDeployment(ctx, "intruder", d.DeploymentID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.svc.GetDeployment(ctx, "owner", "no-such-id")
	assert.ErrorIs(t, err, apperrors.ErrDeploymentNotFound)
}

func TestPredict_RecordsUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key := f.issueKey(t, "u1", 10, nil)
	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	out, err := f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID, Data: []any{1.0}})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0}, out.Predictions)
	assert.Equal(t, int64(1), key.UsageCount)

	summary, err := f.tracker.GetUserCosts(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Contains(t, summary.ByModel, "echo")
}

func TestPredict_ErrorOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDeployment(ctx, "owner", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	tests := []struct {
		name string
		key  *entity.APIKey
		id   string
		want *apperrors.AppError
	}{
		{"unknown deployment", f.issueKey(t, "owner", 10, nil), "missing", apperrors.ErrDeploymentNotFound},
		{"foreign deployment", f.issueKey(t, "intruder", 10, nil), d.DeploymentID, apperrors.ErrForbidden},
		{"no predict permission", f.issueKey(t, "owner", 10, map[string]bool{entity.PermissionDeploy: true}), d.DeploymentID, apperrors.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Predict(ctx, tt.key, PredictRequest{DeploymentID: tt.id, Data: []any{1.0}})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, tt.key.UsageCount, "rejected request must not consume quota")
		})
	}
}

func TestPredict_RateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key := f.issueKey(t, "u1", 3, nil)
	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID, Data: []any{1.0}})
		require.NoError(t, err)
	}
	_, err = f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID, Data: []any{1.0}})
	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)

	summary, err := f.tracker.GetUserCosts(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRequests)
}

func TestPredict_ModelFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.model.predictErr = errors.New("boom")

	key := f.issueKey(t, "u1", 10, nil)
	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	_, err = f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID})
	assert.ErrorIs(t, err, apperrors.ErrPredictionFailed)
	assert.Zero(t, key.UsageCount)

	stored, err := f.keys.ValidateKey(ctx, f.secrets[key.KeyID])
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Zero(t, stored.UsageCount)

	summary, err := f.tracker.GetUserCosts(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalRequests)
}

func TestPredict_FailuresDoNotExhaustQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key := f.issueKey(t, "u1", 2, nil)
	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	f.model.predictErr = errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID, Data: []any{1.0}})
		require.ErrorIs(t, err, apperrors.ErrPredictionFailed)
	}

	f.model.predictErr = nil
	_, err = f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID, Data: []any{1.0}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), key.UsageCount)

	summary, err := f.tracker.GetUserCosts(ctx, "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRequests)
}

func TestPredict_InactiveDeployment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key := f.issueKey(t, "u1", 10, nil)
	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	_, err = f.svc.DeactivateDeployment(ctx, "u1", d.DeploymentID)
	require.NoError(t, err)

	_, err = f.svc.Predict(ctx, key, PredictRequest{DeploymentID: d.DeploymentID})
	assert.ErrorIs(t, err, apperrors.ErrDeploymentNotFound)
}

func TestTrain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.svc.CreateDeployment(ctx, "u1", CreateDeploymentRequest{ModelName: "echo"})
	require.NoError(t, err)

	results, err := f.svc.Train(ctx, "u1", d.DeploymentID, registry.TrainingData{X: [][]float64{{1}, {2}}, Y: []float64{1, 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, results["samples"])

	_, err = f.svc.Train(ctx, "u2", d.DeploymentID, registry.TrainingData{}, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
