package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(&config.DatabaseConfig{
		Driver:      "sqlite",
		SQLite:      config.SQLiteConfig{Path: ":memory:"},
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestKey(userID, keyID string, limit int64) *entity.APIKey {
	return &entity.APIKey{
		KeyID:       keyID,
		KeyHash:     "hash-" + keyID,
		UserID:      userID,
		Name:        "test",
		CreatedAt:   time.Now(),
		IsActive:    true,
		Permissions: entity.PermissionMap([]string{entity.PermissionPredict}),
		RateLimit:   limit,
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	user := entity.NewUser("alice@example.com", "Alice")
	require.NoError(t, user.SetPassword("s3cret-pass"))
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.CheckPassword("s3cret-pass"))

	exists, err := repo.ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpdateBilling(ctx, user.ID, "cus_1", "si_1"))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "si_1", got.StripeSubscriptionItemID)
	assert.True(t, got.HasMeteredBilling())
}

func TestAPIKeyRepository_ConsumeQuota(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(newTestClient(t))
	require.NoError(t, repo.Create(ctx, newTestKey("u1", "sk_limit", 3)))

	for i := 0; i < 3; i++ {
		ok, err := repo.ConsumeQuota(ctx, "sk_limit")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i)
	}

	ok, err := repo.ConsumeQuota(ctx, "sk_limit")
	require.NoError(t, err)
	assert.False(t, ok)

	key, err := repo.GetByKeyID(ctx, "sk_limit")
	require.NoError(t, err)
	assert.Equal(t, int64(3), key.UsageCount)
}

func TestAPIKeyRepository_ConsumeQuotaConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(newTestClient(t))
	require.NoError(t, repo.Create(ctx, newTestKey("u1", "sk_race", 10)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeQuota(ctx, "sk_race")
			if err == nil && ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
	key, err := repo.GetByKeyID(ctx, "sk_race")
	require.NoError(t, err)
	assert.Equal(t, int64(10), key.UsageCount)
}

func TestAPIKeyRepository_ReleaseQuota(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(newTestClient(t))
	require.NoError(t, repo.Create(ctx, newTestKey("u1", "sk_release", 1)))

	ok, err := repo.ConsumeQuota(ctx, "sk_release")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.ReleaseQuota(ctx, "sk_release"))
	// 用量为 0 时不再递减
	require.NoError(t, repo.ReleaseQuota(ctx, "sk_release"))

	key, err := repo.GetByKeyID(ctx, "sk_release")
	require.NoError(t, err)
	assert.Zero(t, key.UsageCount)

	ok, err = repo.ConsumeQuota(ctx, "sk_release")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAPIKeyRepository_IncrementAndRevoke(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(newTestClient(t))
	require.NoError(t, repo.Create(ctx, newTestKey("u1", "sk_a", 1)))
	require.NoError(t, repo.Create(ctx, newTestKey("u2", "sk_b", 1)))

	// 无条件累加可以超过上限
	require.NoError(t, repo.IncrementUsage(ctx, "sk_a"))
	require.NoError(t, repo.IncrementUsage(ctx, "sk_a"))
	key, err := repo.GetByKeyID(ctx, "sk_a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), key.UsageCount)

	revoked, err := repo.DeactivateForUser(ctx, "u1", "sk_b")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = repo.DeactivateForUser(ctx, "u2", "sk_b")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.Deactivate(ctx, "sk_missing")
	require.NoError(t, err)
	assert.False(t, revoked)

	keys, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].IsActive)
}

func TestDeploymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDeploymentRepository(newTestClient(t))

	d := entity.NewDeployment("u1", "housingCrisis", "", map[string]any{"replicas": 1})
	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.GetByID(ctx, d.DeploymentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "latest", got.ModelVersion)
	assert.Equal(t, "/predict/housingCrisis", got.Endpoint)

	require.NoError(t, repo.UpdateStatus(ctx, d.DeploymentID, entity.DeploymentStatusInactive))
	got, err = repo.GetByID(ctx, d.DeploymentID)
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	list, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUsageRecordRepository_Filter(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageRecordRepository(newTestClient(t))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := entity.NewUsageRecord("u1", "d1", "housingCrisis", 100, 0.001, nil)
		rec.Timestamp = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, rec))
	}
	other := entity.NewUsageRecord("u2", "d2", "default", 10, 0.01, nil)
	require.NoError(t, repo.Create(ctx, other))

	all, err := repo.ListByUser(ctx, "u1", repository.UsageFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.True(t, all[0].Timestamp.Before(all[4].Timestamp))

	// 边界两端包含，且与入参时区无关
	loc := time.FixedZone("UTC+8", 8*3600)
	start := base.Add(time.Hour).In(loc)
	end := base.Add(3 * time.Hour).In(loc)
	ranged, err := repo.ListByUser(ctx, "u1", repository.UsageFilter{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	page, err := repo.ListByUserPaged(ctx, "u1", repository.UsageFilter{}, repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].Timestamp.After(page.Items[1].Timestamp))
}

func TestTxManager_Rollback(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	tx := NewTxManager(client)
	repo := NewDeploymentRepository(client)

	d := entity.NewDeployment("u1", "default", "v1", nil)
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, d); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	got, err := repo.GetByID(ctx, d.DeploymentID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
