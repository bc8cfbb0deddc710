package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestAPIKeyUsability(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		key     APIKey
		usable  bool
		expired bool
	}{
		{name: "active without expiry", key: APIKey{IsActive: true}, usable: true},
		{name: "active future expiry", key: APIKey{IsActive: true, ExpiresAt: &future}, usable: true},
		{name: "active past expiry", key: APIKey{IsActive: true, ExpiresAt: &past}, expired: true},
		{name: "expiry exactly now", key: APIKey{IsActive: true, ExpiresAt: &now}, expired: true},
		{name: "revoked", key: APIKey{IsActive: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.key.IsUsable(now))
			assert.Equal(t, tt.expired, tt.key.IsExpired(now))
		})
	}
}

func TestAPIKeyPermissions(t *testing.T) {
	key := APIKey{Permissions: datatypes.JSONMap{"predict": true, "deploy": false, "odd": "yes"}}

	assert.True(t, key.HasPermission(PermissionPredict))
	assert.False(t, key.HasPermission(PermissionDeploy))
	assert.False(t, key.HasPermission("odd"))
	assert.False(t, key.HasPermission("missing"))
	assert.False(t, (&APIKey{}).HasPermission(PermissionPredict))

	perms := PermissionMap([]string{PermissionPredict, PermissionDeploy})
	assert.Equal(t, true, perms[PermissionPredict])
	assert.Equal(t, true, perms[PermissionDeploy])
}

func TestAPIKeyRateLimit(t *testing.T) {
	key := APIKey{RateLimit: 3}
	for i := int64(0); i < 3; i++ {
		key.UsageCount = i
		assert.True(t, key.WithinRateLimit(), "usage %d", i)
	}
	key.UsageCount = 3
	assert.False(t, key.WithinRateLimit())
	assert.Equal(t, int64(0), key.Remaining())

	key.UsageCount = 1
	assert.Equal(t, int64(2), key.Remaining())
}

func TestNewDeployment(t *testing.T) {
	d := NewDeployment("user-1", "housingCrisis", "", nil)

	assert.NotEmpty(t, d.DeploymentID)
	assert.Equal(t, DefaultModelVersion, d.ModelVersion)
	assert.Equal(t, DeploymentStatusActive, d.Status)
	assert.Equal(t, "/predict/housingCrisis", d.Endpoint)
	assert.NotNil(t, d.Config)
	assert.True(t, d.IsOwnedBy("user-1"))
	assert.False(t, d.IsOwnedBy("user-2"))
	assert.True(t, d.IsActive())
}

func TestNewUsageRecord(t *testing.T) {
	r := NewUsageRecord("u", "d", "m", 12.5, 0.0042, nil)

	assert.NotEmpty(t, r.RecordID)
	assert.Equal(t, 1, r.RequestCount)
	assert.InDelta(t, 0.0042, r.Cost, 1e-12)
	assert.NotNil(t, r.Metadata)
	assert.False(t, r.Timestamp.IsZero())
}

func TestUserPassword(t *testing.T) {
	u := NewUser("a@example.com", "A")
	assert.Equal(t, UserRoleMember, u.Role)
	assert.True(t, u.IsActive())
	assert.False(t, u.HasMeteredBilling())

	assert.NoError(t, u.SetPassword("s3cret-pass"))
	assert.True(t, u.CheckPassword("s3cret-pass"))
	assert.False(t, u.CheckPassword("wrong"))
}
