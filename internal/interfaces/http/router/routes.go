// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"cloudeasyml-api/internal/domain/entity"
	"cloudeasyml-api/internal/interfaces/http/middleware"
)

// V1Middlewares v1 路由使用的中间件
type V1Middlewares struct {
	Auth      gin.HandlerFunc
	RateLimit gin.HandlerFunc
	// Tx 管理类写操作的事务
	Tx gin.HandlerFunc
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, mw V1Middlewares) {
	// 认证
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 公开目录
	v1.GET("/models", h.Model.ListModels)
	v1.GET("/pricing", h.Pricing.ListPricing)
	v1.GET("/pricing/:model", h.Pricing.GetPricing)

	authed := v1.Group("", mw.Auth, mw.RateLimit)

	// 费率与模型目录维护
	authed.PUT("/pricing/:model", middleware.RequireAdmin(), h.Pricing.UpdatePricing)
	authed.POST("/models/reload", middleware.RequireAdmin(), h.Model.ReloadModels)
	authed.DELETE("/models/:model", middleware.RequireAdmin(), h.Model.UnloadModel)

	// 用户
	users := authed.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me/billing", h.User.UpdateBilling)
	}

	// API Key 管理
	keys := authed.Group("/api-keys")
	{
		keys.POST("", mw.Tx, h.APIKey.CreateAPIKey)
		keys.GET("", h.APIKey.ListAPIKeys)
		keys.DELETE("/:keyId", mw.Tx, h.APIKey.RevokeAPIKey)
	}

	// 部署管理
	deployments := authed.Group("/deployments", middleware.RequireKeyPermission(entity.PermissionDeploy))
	{
		deployments.POST("", mw.Tx, h.Deployment.CreateDeployment)
		deployments.GET("", h.Deployment.ListDeployments)
		deployments.GET("/:id", h.Deployment.GetDeployment)
		deployments.DELETE("/:id", mw.Tx, h.Deployment.DeactivateDeployment)
		deployments.POST("/:id/train", h.Deployment.TrainDeployment)
	}

	// 推理，仅接受 API Key，权限与配额在服务层检查
	authed.POST("/predict", middleware.RequireAPIKey(), h.Prediction.Predict)

	// 用量
	usage := authed.Group("/usage")
	{
		usage.GET("", h.Usage.GetUsage)
		usage.GET("/records", h.Usage.ListRecords)
	}
}
