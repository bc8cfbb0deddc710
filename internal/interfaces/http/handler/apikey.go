// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/interfaces/http/dto"
	"cloudeasyml-api/internal/interfaces/http/middleware"
	apperrors "cloudeasyml-api/pkg/errors"
)

// APIKeyHandler API Key 处理器
type APIKeyHandler struct {
	manager *apikey.Manager
}

// NewAPIKeyHandler 创建 API Key 处理器
func NewAPIKeyHandler(manager *apikey.Manager) *APIKeyHandler {
	return &APIKeyHandler{manager: manager}
}

// CreateAPIKey 签发 API Key
// @Summary 签发 API Key
// @Description 完整密钥只在响应中出现一次
// @Tags APIKeys
// @Accept json
// @Produce json
// @Param body body dto.CreateAPIKeyRequest true "Key 参数"
// @Success 201 {object} dto.Response[dto.CreateAPIKeyResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/api-keys [post]
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays <= 0 {
		dto.BadRequest(c, "expires_in_days must be positive")
		return
	}

	fullKey, key, err := h.manager.GenerateKey(ctx, apikey.GenerateRequest{
		UserID:        middleware.GetUserID(c),
		Name:          req.Name,
		ExpiresInDays: req.ExpiresInDays,
		Permissions:   req.Permissions,
		RateLimit:     req.RateLimit,
	})
	if err != nil {
		HandleError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create api key"))
		return
	}

	dto.Created(c, &dto.CreateAPIKeyResponse{
		APIKey:   fullKey,
		Metadata: dto.ToAPIKeyResponse(key),
		Warning:  dto.KeyWarning,
	})
}

// ListAPIKeys 列出当前用户的 API Key
// @Summary 列出 API Key
// @Tags APIKeys
// @Produce json
// @Success 200 {object} dto.Response[dto.APIKeyListResponse]
// @Router /v1/api-keys [get]
func (h *APIKeyHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.manager.ListKeys(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		HandleError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list api keys"))
		return
	}
	dto.Success(c, dto.ToAPIKeyListResponse(keys))
}

// RevokeAPIKey 吊销 API Key
// @Summary 吊销 API Key
// @Tags APIKeys
// @Produce json
// @Param keyId path string true "Key ID"
// @Success 200 {object} dto.Response[map[string]string]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/api-keys/{keyId} [delete]
func (h *APIKeyHandler) RevokeAPIKey(c *gin.Context) {
	revoked, err := h.manager.RevokeUserKey(c.Request.Context(), middleware.GetUserID(c), dto.BindKeyID(c))
	if err != nil {
		HandleError(c, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to revoke api key"))
		return
	}
	if !revoked {
		HandleError(c, apperrors.ErrAPIKeyNotFound.WithDetail("API key not found"))
		return
	}
	dto.Success(c, gin.H{"message": "API key revoked successfully"})
}
