package apikey

import (
	"context"

	"cloudeasyml-api/internal/domain/entity"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/metrics"
)

// Gate 请求准入：认证、权限与用量上限
type Gate struct {
	manager *Manager
}

// NewGate 创建准入门
func NewGate(manager *Manager) *Gate {
	return &Gate{manager: manager}
}

// Authenticate 校验凭证，缺失或无效时返回 ErrInvalidAPIKey
func (g *Gate) Authenticate(ctx context.Context, credentials string) (*entity.APIKey, error) {
	if credentials == "" {
		metrics.APIKeyAuthTotal.WithLabelValues("missing").Inc()
		return nil, apperrors.ErrInvalidAPIKey
	}

	key, err := g.manager.ValidateKey(ctx, credentials)
	if err != nil {
		metrics.APIKeyAuthTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to validate api key")
	}
	if key == nil {
		metrics.APIKeyAuthTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.ErrInvalidAPIKey
	}

	metrics.APIKeyAuthTotal.WithLabelValues("success").Inc()
	return key, nil
}

// CheckRateLimit 用量严格小于上限时放行
func (g *Gate) CheckRateLimit(key *entity.APIKey) bool {
	return key.WithinRateLimit()
}

// CheckPermission 查询权限，缺省拒绝
func (g *Gate) CheckPermission(key *entity.APIKey, name string) bool {
	return key.HasPermission(name)
}

// Admit 原子地检查并占用一次配额
func (g *Gate) Admit(ctx context.Context, key *entity.APIKey) error {
	admitted, err := g.manager.ConsumeQuota(ctx, key.KeyID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to consume api key quota")
	}
	if !admitted {
		metrics.QuotaRejectionsTotal.Inc()
		return apperrors.ErrRateLimitExceeded
	}
	key.UsageCount++
	return nil
}

// Release 请求未能完成时归还 Admit 占用的配额
func (g *Gate) Release(ctx context.Context, key *entity.APIKey) error {
	if err := g.manager.ReleaseQuota(ctx, key.KeyID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to release api key quota")
	}
	if key.UsageCount > 0 {
		key.UsageCount--
	}
	return nil
}
