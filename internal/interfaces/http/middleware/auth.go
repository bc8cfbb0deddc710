// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/domain/repository"
	apperrors "cloudeasyml-api/pkg/errors"
	"cloudeasyml-api/pkg/logger"
	"cloudeasyml-api/pkg/utils"
)

// Gin Context 中的主体信息键
const (
	ContextUserID   = "user_id"
	ContextRole     = "role"
	ContextKeyID    = "key_id"
	ContextAPIKey   = "api_key"
	ContextAuthType = "auth_type"
)

// 认证方式
const (
	AuthTypeJWT    = "jwt"
	AuthTypeAPIKey = "api_key"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
}

// Auth 认证中间件
// Bearer 凭证形如 sk_xxx.yyy 时按 API Key 校验，否则按 JWT AccessToken 解析
func Auth(cfg AuthConfig, gate *apikey.Gate, users repository.UserRepository) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing authentication credentials")
			return
		}

		if apikey.LooksLikeKey(token) {
			authenticateAPIKey(c, gate, users, token)
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, utils.ErrExpiredToken) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}
		if claims.Type != utils.TokenTypeAccess {
			abortUnauthorized(c, "invalid token type")
			return
		}

		setPrincipal(c, claims.UserID, claims.Role, AuthTypeJWT)
		c.Next()
	}
}

func authenticateAPIKey(c *gin.Context, gate *apikey.Gate, users repository.UserRepository, token string) {
	ctx := c.Request.Context()

	key, err := gate.Authenticate(ctx, token)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAPIKeyInvalid) {
			abortUnauthorized(c, "Invalid or expired API key")
			return
		}
		logger.Error(ctx, "failed to authenticate api key", err)
		abortInternal(c)
		return
	}

	role := string(entity.UserRoleMember)
	if users != nil {
		user, err := users.GetByID(ctx, key.UserID)
		if err != nil {
			logger.Error(ctx, "failed to load api key owner", err, "key_id", key.KeyID)
			abortInternal(c)
			return
		}
		if user == nil || !user.IsActive() {
			abortUnauthorized(c, "Invalid or expired API key")
			return
		}
		role = string(user.Role)
	}

	c.Set(ContextKeyID, key.KeyID)
	c.Set(ContextAPIKey, key)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.KeyIDKey, key.KeyID))
	setPrincipal(c, key.UserID, role, AuthTypeAPIKey)
	c.Next()
}

func setPrincipal(c *gin.Context, userID, role, authType string) {
	c.Set(ContextUserID, userID)
	c.Set(ContextRole, role)
	c.Set(ContextAuthType, authType)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.UserIDKey, userID))
}

// bearerToken 解析 Authorization: Bearer <token>
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequireAPIKey 仅允许 API Key 调用
func RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetAPIKey(c); !ok {
			abortUnauthorized(c, "API key required")
			return
		}
		c.Next()
	}
}

// RequireKeyPermission API Key 调用时要求具备指定权限，JWT 调用直接放行
func RequireKeyPermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key, ok := GetAPIKey(c); ok && !key.HasPermission(name) {
			abortForbidden(c, "API key lacks "+name+" permission")
			return
		}
		c.Next()
	}
}

// GetUserID 当前主体的用户 ID
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetAPIKey 当前请求使用的 API Key
func GetAPIKey(c *gin.Context) (*entity.APIKey, bool) {
	v, ok := c.Get(ContextAPIKey)
	if !ok {
		return nil, false
	}
	key, ok := v.(*entity.APIKey)
	return key, ok && key != nil
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     401,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":     500,
		"message":  "internal server error",
		"trace_id": c.GetString("trace_id"),
	})
}
