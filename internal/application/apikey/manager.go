// Package apikey 提供 API Key 的签发、校验、吊销与准入控制
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/pkg/logger"
)

const (
	// KeyIDPrefix 公开 ID 前缀
	KeyIDPrefix = "sk_"

	keyIDBytes  = 16
	secretBytes = 32
	separator   = "."
)

// 默认值
const (
	DefaultRateLimit = 1000
)

// DefaultPermissions 新签发 Key 的默认权限
var DefaultPermissions = []string{entity.PermissionPredict, entity.PermissionDeploy}

// GenerateRequest 签发参数
type GenerateRequest struct {
	UserID        string
	Name          string
	ExpiresInDays *int
	Permissions   map[string]bool
	RateLimit     int64
}

// Manager API Key 管理器
type Manager struct {
	repo               repository.APIKeyRepository
	defaultRateLimit   int64
	defaultPermissions []string
	now                func() time.Time
}

// NewManager 创建管理器
func NewManager(repo repository.APIKeyRepository, cfg *config.APIKeysConfig) *Manager {
	m := &Manager{
		repo:               repo,
		defaultRateLimit:   DefaultRateLimit,
		defaultPermissions: DefaultPermissions,
		now:                time.Now,
	}
	if cfg != nil {
		if cfg.DefaultRateLimit > 0 {
			m.defaultRateLimit = int64(cfg.DefaultRateLimit)
		}
		if len(cfg.DefaultPermissions) > 0 {
			m.defaultPermissions = cfg.DefaultPermissions
		}
	}
	return m
}

// GenerateKey 签发新 Key，完整密钥只在此处返回一次
func (m *Manager) GenerateKey(ctx context.Context, req GenerateRequest) (string, *entity.APIKey, error) {
	keyID, err := randomToken(keyIDBytes)
	if err != nil {
		return "", nil, err
	}
	keyID = KeyIDPrefix + keyID

	secret, err := randomToken(secretBytes)
	if err != nil {
		return "", nil, err
	}

	now := m.now()
	key := &entity.APIKey{
		KeyID:     keyID,
		KeyHash:   hashSecret(secret),
		UserID:    req.UserID,
		Name:      req.Name,
		CreatedAt: now,
		IsActive:  true,
		RateLimit: req.RateLimit,
	}
	if key.RateLimit <= 0 {
		key.RateLimit = m.defaultRateLimit
	}
	if req.ExpiresInDays != nil {
		expiresAt := now.AddDate(0, 0, *req.ExpiresInDays)
		key.ExpiresAt = &expiresAt
	}
	if req.Permissions != nil {
		key.Permissions = make(map[string]any, len(req.Permissions))
		for name, granted := range req.Permissions {
			key.Permissions[name] = granted
		}
	} else {
		key.Permissions = entity.PermissionMap(m.defaultPermissions)
	}

	if err := m.repo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	logger.Info(logger.WithContext(ctx, logger.KeyIDKey, keyID), "api key issued",
		"user_id", req.UserID,
		"rate_limit", key.RateLimit,
	)
	return keyID + separator + secret, key, nil
}

// ValidateKey 校验完整密钥
// 格式错误、不存在、摘要不符、已吊销或已过期都返回 nil, nil
func (m *Manager) ValidateKey(ctx context.Context, fullKey string) (*entity.APIKey, error) {
	keyID, secret, ok := splitKey(fullKey)
	if !ok {
		return nil, nil
	}

	key, err := m.repo.GetByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	if subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(key.KeyHash)) != 1 {
		return nil, nil
	}
	if !key.IsUsable(m.now()) {
		return nil, nil
	}
	return key, nil
}

// IncrementUsage 无条件累加用量
func (m *Manager) IncrementUsage(ctx context.Context, keyID string) error {
	return m.repo.IncrementUsage(ctx, keyID)
}

// ConsumeQuota 未达上限时原子累加用量，返回是否放行
func (m *Manager) ConsumeQuota(ctx context.Context, keyID string) (bool, error) {
	return m.repo.ConsumeQuota(ctx, keyID)
}

// ReleaseQuota 归还 ConsumeQuota 占用的一次配额
func (m *Manager) ReleaseQuota(ctx context.Context, keyID string) error {
	return m.repo.ReleaseQuota(ctx, keyID)
}

// RevokeKey 吊销 Key，返回是否存在
func (m *Manager) RevokeKey(ctx context.Context, keyID string) (bool, error) {
	revoked, err := m.repo.Deactivate(ctx, keyID)
	if err != nil {
		return false, err
	}
	if revoked {
		logger.Info(logger.WithContext(ctx, logger.KeyIDKey, keyID), "api key revoked")
	}
	return revoked, nil
}

// RevokeUserKey 只吊销属于该用户的 Key
func (m *Manager) RevokeUserKey(ctx context.Context, userID, keyID string) (bool, error) {
	revoked, err := m.repo.DeactivateForUser(ctx, userID, keyID)
	if err != nil {
		return false, err
	}
	if revoked {
		logger.Info(logger.WithContext(ctx, logger.KeyIDKey, keyID), "api key revoked", "user_id", userID)
	}
	return revoked, nil
}

// ListKeys 按创建顺序返回用户的全部 Key
func (m *Manager) ListKeys(ctx context.Context, userID string) ([]*entity.APIKey, error) {
	return m.repo.ListByUser(ctx, userID)
}

// LooksLikeKey 判断凭证是否为 API Key 格式
func LooksLikeKey(credentials string) bool {
	_, _, ok := splitKey(credentials)
	return ok && strings.HasPrefix(credentials, KeyIDPrefix)
}

func splitKey(fullKey string) (string, string, bool) {
	parts := strings.Split(fullKey, separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
