package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/application/serving"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
	"cloudeasyml-api/internal/interfaces/http/handler"
)

type echoModel struct{}

func (echoModel) Metadata() registry.Metadata {
	return registry.NewMetadata("echo", "0.1.0", "returns its input", "tests")
}
func (echoModel) Load(context.Context) error { return nil }
func (echoModel) Predict(_ context.Context, in registry.PredictionInput) (*registry.PredictionOutput, error) {
	return &registry.PredictionOutput{Predictions: in.Data, Metadata: map[string]any{}}, nil
}
func (echoModel) Train(_ context.Context, data registry.TrainingData, _ map[string]any) (map[string]any, error) {
	return map[string]any{"samples": len(data.X)}, nil
}
func (echoModel) Unload(context.Context) error { return nil }
func (m echoModel) HealthCheck(context.Context) map[string]any {
	return registry.HealthStatus(m, true)
}

// memCache 进程内目录缓存，记录失效次数
type memCache struct {
	mu             sync.Mutex
	entries        map[string][]byte
	modelFlushes   int
	pricingFlushes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) GetOrLoadSafe(_ context.Context, key string, _ time.Duration, loader func() (any, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if raw, ok := c.entries[key]; ok {
		return raw, nil
	}
	data, err := loader()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	c.entries[key] = raw
	return raw, nil
}

func (c *memCache) InvalidateModels(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, "models:") {
			delete(c.entries, key)
		}
	}
	c.modelFlushes++
	return nil
}

func (c *memCache) InvalidatePricing(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, "pricing:tariffs")
	c.pricingFlushes++
	return nil
}

type testServer struct {
	engine *gin.Engine
	users  *postgres.UserRepository
	cache  *memCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := postgres.NewClient(&config.DatabaseConfig{
		Driver:      "sqlite",
		SQLite:      config.SQLiteConfig{Path: ":memory:"},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{}
	cfg.App.Name = "cloudeasyml-api-test"
	cfg.Security.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "cloudeasyml-test"}

	reg := registry.NewRegistry(&config.PluginsConfig{Root: t.TempDir()}, nil)
	require.NoError(t, reg.RegisterModel("echo", func(map[string]any) registry.Model { return echoModel{} }))

	users := postgres.NewUserRepository(client)
	keys := apikey.NewManager(postgres.NewAPIKeyRepository(client), &config.APIKeysConfig{DefaultRateLimit: 2})
	gate := apikey.NewGate(keys)
	pricing := billing.NewPricingEngine(nil)
	tracker := billing.NewUsageTracker(postgres.NewUsageRecordRepository(client), pricing, nil)
	svc := serving.NewService(postgres.NewDeploymentRepository(client), gate, reg, tracker)
	cache := newMemCache()

	r := NewWithDeps(cfg, &RouterHandlers{
		Health:     handler.NewHealthHandler(client, nil, reg),
		Auth:       handler.NewAuthHandler(&cfg.Security.JWT, users),
		User:       handler.NewUserHandler(users),
		APIKey:     handler.NewAPIKeyHandler(keys),
		Deployment: handler.NewDeploymentHandler(svc),
		Prediction: handler.NewPredictionHandler(svc),
		Usage:      handler.NewUsageHandler(tracker),
		Model:      handler.NewModelHandler(reg, cache, time.Minute),
		Pricing:    handler.NewPricingHandler(pricing, cache, time.Minute),
	}, &RouterDeps{
		Gate:       gate,
		Users:      users,
		Transactor: postgres.NewTxManager(client),
	})

	return &testServer{engine: r.Engine(), users: users, cache: cache}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
		"name":     "Tester",
	})
	require.Equal(t, http.StatusCreated, status)
	return decode[struct {
		AccessToken string `json:"access_token"`
	}](t, env.Data).AccessToken
}

func (s *testServer) issueKey(t *testing.T, jwt string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/v1/api-keys", jwt, map[string]any{"name": "ci"})
	require.Equal(t, http.StatusCreated, status)
	resp := decode[struct {
		APIKey  string `json:"api_key"`
		Warning string `json:"warning"`
	}](t, env.Data)
	assert.Equal(t, "Save this key securely. It won't be shown again.", resp.Warning)
	return resp.APIKey
}

// admin 直接写库创建管理员并登录
func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	admin := entity.NewUser("admin@example.com", "Admin")
	admin.Role = entity.UserRoleAdmin
	require.NoError(t, admin.SetPassword("secret123"))
	require.NoError(t, s.users.Create(context.Background(), admin))

	status, env := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "admin@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	return decode[struct {
		AccessToken string `json:"access_token"`
	}](t, env.Data).AccessToken
}

func (s *testServer) deploy(t *testing.T, token string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/v1/deployments", token, map[string]any{"model_name": "echo"})
	require.Equal(t, http.StatusCreated, status)
	resp := decode[struct {
		Deployment struct {
			DeploymentID string `json:"deployment_id"`
		} `json:"deployment"`
		Message string `json:"message"`
	}](t, env.Data)
	assert.Equal(t, "Deployment created successfully", resp.Message)
	return resp.Deployment.DeploymentID
}

func TestPredictFlow(t *testing.T) {
	s := newTestServer(t)
	jwt := s.register(t, "flow@example.com")
	key := s.issueKey(t, jwt)
	deploymentID := s.deploy(t, key)

	// JWT 不能调用推理
	status, _ := s.do(t, http.MethodPost, "/v1/predict", jwt, map[string]any{"deployment_id": deploymentID, "data": []float64{1}})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.do(t, http.MethodPost, "/v1/predict", key, map[string]any{
		"deployment_id": deploymentID,
		"data":          []float64{1, 2, 3},
	})
	require.Equal(t, http.StatusOK, status)
	out := decode[registry.PredictionOutput](t, env.Data)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, out.Predictions)

	status, env = s.do(t, http.MethodGet, "/v1/usage", jwt, nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode[billing.CostSummary](t, env.Data)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Contains(t, summary.ByModel, "echo")
	assert.Contains(t, string(env.Data), `"total_requests":1`)
	assert.Contains(t, string(env.Data), `"by_model":{"echo"`)

	status, _ = s.do(t, http.MethodGet, "/v1/usage?start_date=not-a-date", jwt, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do(t, http.MethodGet, "/v1/usage?start_date=2020-01-01&end_date=2999-01-01", jwt, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodGet, "/v1/usage/records?page=1&page_size=10", key, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)
}

func TestPredict_QuotaExhausted(t *testing.T) {
	s := newTestServer(t)
	jwt := s.register(t, "quota@example.com")
	key := s.issueKey(t, jwt)
	deploymentID := s.deploy(t, key)

	body := map[string]any{"deployment_id": deploymentID, "data": []float64{1}}
	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/v1/predict", key, body)
		require.Equal(t, http.StatusOK, status)
	}
	status, env := s.do(t, http.MethodPost, "/v1/predict", key, body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, http.StatusTooManyRequests, env.Code)
}

func TestPredict_UnknownDeployment(t *testing.T) {
	s := newTestServer(t)
	key := s.issueKey(t, s.register(t, "missing@example.com"))

	status, _ := s.do(t, http.MethodPost, "/v1/predict", key, map[string]any{"deployment_id": "nope", "data": []float64{1}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeployment_OwnershipEnforced(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner@example.com")
	other := s.register(t, "other@example.com")
	deploymentID := s.deploy(t, owner)

	status, _ := s.do(t, http.MethodGet, "/v1/deployments/"+deploymentID, owner, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := s.do(t, http.MethodGet, "/v1/deployments/"+deploymentID, other, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied", env.Message)

	// 他人的 Key 调用推理同样被拒绝
	otherKey := s.issueKey(t, other)
	status, _ = s.do(t, http.MethodPost, "/v1/predict", otherKey, map[string]any{"deployment_id": deploymentID, "data": []float64{1}})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDeployment_UnregisteredModel(t *testing.T) {
	s := newTestServer(t)
	jwt := s.register(t, "unknown-model@example.com")

	status, _ := s.do(t, http.MethodPost, "/v1/deployments", jwt, map[string]any{"model_name": "ghost"})
	assert.Equal(t, http.StatusNotFound, status)

	status, env := s.do(t, http.MethodGet, "/v1/deployments", jwt, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"deployments":[]`)
}

func TestAPIKey_RevokeAndList(t *testing.T) {
	s := newTestServer(t)
	jwt := s.register(t, "revoke@example.com")
	key := s.issueKey(t, jwt)
	keyID, _, _ := strings.Cut(key, ".")

	status, env := s.do(t, http.MethodGet, "/v1/api-keys", jwt, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "key_hash")
	assert.Contains(t, string(env.Data), keyID)

	status, _ = s.do(t, http.MethodDelete, "/v1/api-keys/"+keyID, s.register(t, "intruder@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(t, http.MethodDelete, "/v1/api-keys/"+keyID, jwt, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "API key revoked successfully")

	status, env = s.do(t, http.MethodGet, "/v1/deployments", key, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired API key", env.Message)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/v1/usage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Missing authentication credentials", env.Message)

	status, _ = s.do(t, http.MethodGet, "/v1/usage", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPricing(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/v1/pricing/unknown", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"fallback":true`)

	body := map[string]float64{"per_request": 0.01, "per_second": 0.001, "per_gpu_hour": 1}
	member := s.register(t, "member@example.com")
	status, _ = s.do(t, http.MethodPut, "/v1/pricing/echo", member, body)
	assert.Equal(t, http.StatusForbidden, status)

	adminJWT := s.admin(t)
	status, env = s.do(t, http.MethodPut, "/v1/pricing/echo", adminJWT, body)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"per_gpu_hour":1`)

	status, env = s.do(t, http.MethodGet, "/v1/pricing/echo", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"fallback":false`)
}

func TestHealthAndModels(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"models_loaded":1`)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	status, env := s.do(t, http.MethodGet, "/v1/models", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"name":"echo"`)
}

func TestPricing_CacheInvalidatedOnUpdate(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/v1/pricing", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), `"echo"`)

	adminJWT := s.admin(t)
	body := map[string]float64{"per_request": 0.01, "per_second": 0.001, "per_gpu_hour": 1}
	status, _ = s.do(t, http.MethodPut, "/v1/pricing/echo", adminJWT, body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, s.cache.pricingFlushes)

	status, env = s.do(t, http.MethodGet, "/v1/pricing", "", nil)
	require.Equal(t, http.StatusOK, status)
	tariffs := decode[struct {
		Tariffs map[string]billing.Tariff `json:"tariffs"`
	}](t, env.Data).Tariffs
	require.Contains(t, tariffs, "echo")
	assert.Equal(t, 0.01, tariffs["echo"].PerRequest)
}

func TestModels_ReloadAndUnload(t *testing.T) {
	s := newTestServer(t)
	jwt := s.register(t, "models@example.com")
	key := s.issueKey(t, jwt)
	deploymentID := s.deploy(t, key)

	status, _ := s.do(t, http.MethodGet, "/v1/models", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, s.cache.entries, "models:list")

	// 非管理员不能维护模型目录
	status, _ = s.do(t, http.MethodPost, "/v1/models/reload", jwt, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodDelete, "/v1/models/echo", jwt, nil)
	assert.Equal(t, http.StatusForbidden, status)

	adminJWT := s.admin(t)
	status, env := s.do(t, http.MethodPost, "/v1/models/reload", adminJWT, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"loaded":[]`)
	assert.Equal(t, 1, s.cache.modelFlushes)
	assert.NotContains(t, s.cache.entries, "models:list")

	// 推理使模型进入已加载状态
	status, _ = s.do(t, http.MethodPost, "/v1/predict", key, map[string]any{"deployment_id": deploymentID, "data": []float64{1}})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do(t, http.MethodDelete, "/v1/models/echo", adminJWT, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"unloaded":true`)
	assert.Equal(t, 2, s.cache.modelFlushes)

	status, _ = s.do(t, http.MethodDelete, "/v1/models/echo", adminJWT, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 2, s.cache.modelFlushes)

	// 卸载后仍可按需重新加载
	status, _ = s.do(t, http.MethodPost, "/v1/predict", key, map[string]any{"deployment_id": deploymentID, "data": []float64{1}})
	assert.Equal(t, http.StatusOK, status)
}
