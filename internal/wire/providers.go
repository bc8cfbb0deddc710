// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/registry"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
	"cloudeasyml-api/internal/infrastructure/persistence/redis"
	"cloudeasyml-api/internal/interfaces/http/handler"
	"cloudeasyml-api/internal/interfaces/http/middleware"
	"cloudeasyml-api/internal/plugins"
	"cloudeasyml-api/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	PgClient       *postgres.Client
	TxManager      *postgres.TxManager
	UserRepo       *postgres.UserRepository
	APIKeyRepo     *postgres.APIKeyRepository
	DeploymentRepo *postgres.DeploymentRepository
	UsageRepo      *postgres.UsageRecordRepository

	// Redis 未启用时为空
	RedisClient *redis.Client
	Cache       *redis.Cache

	// Messaging 未启用时为空
	Producer *messaging.Producer
}

// DatabaseOnlyDataLayer 仅包含数据库的数据层（用于 bootstrap）
type DatabaseOnlyDataLayer struct {
	PgClient       *postgres.Client
	TxManager      *postgres.TxManager
	UserRepo       *postgres.UserRepository
	APIKeyRepo     *postgres.APIKeyRepository
	DeploymentRepo *postgres.DeploymentRepository
	UsageRepo      *postgres.UsageRecordRepository
}

// ProvideDatabaseClient 提供数据库客户端
func ProvideDatabaseClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 提供 Redis 客户端，未启用或不可用时返回空
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and streams disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideCacheOptional 提供缓存
func ProvideCacheOptional(client *redis.Client) *redis.Cache {
	if client == nil {
		return nil
	}
	return redis.NewCache(client)
}

// ProvideRateLimiterOptional 提供突发限流器
func ProvideRateLimiterOptional(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideMessagingProducerOptional 提供消息生产者
func ProvideMessagingProducerOptional(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	if redisClient == nil || !cfg.Messaging.Enabled {
		return nil
	}
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideUsagePublisher 用量事件发布者
// 生产者为空时必须返回 nil 接口，而非包着空指针的接口
func ProvideUsagePublisher(producer *messaging.Producer) billing.UsagePublisher {
	if producer == nil {
		return nil
	}
	return producer
}

// ProvideAuditPublisher 审计事件发布者
func ProvideAuditPublisher(producer *messaging.Producer) middleware.AuditPublisher {
	if producer == nil {
		return nil
	}
	return producer
}

// ProvideAPIKeyManager 提供 API Key 管理器
func ProvideAPIKeyManager(repo repository.APIKeyRepository, cfg *config.Config) *apikey.Manager {
	return apikey.NewManager(repo, &cfg.Security.APIKeys)
}

// ProvidePricingEngine 提供费率引擎
func ProvidePricingEngine(cfg *config.Config) *billing.PricingEngine {
	return billing.NewPricingEngine(&cfg.Pricing)
}

// ProvideRegistry 提供模型注册表并加载全部插件
func ProvideRegistry(ctx context.Context, cfg *config.Config) *registry.Registry {
	reg := registry.NewRegistry(&cfg.Plugins, plugins.Catalog(&cfg.Forecast))
	reg.LoadAllPlugins(ctx)
	return reg
}

// ProvideAuthHandler 提供认证处理器
func ProvideAuthHandler(cfg *config.Config, users repository.UserRepository) *handler.AuthHandler {
	return handler.NewAuthHandler(&cfg.Security.JWT, users)
}

// ProvideCatalogCache 目录缓存，Redis 未启用时返回 nil 接口
func ProvideCatalogCache(cache *redis.Cache) handler.CatalogCache {
	if cache == nil {
		return nil
	}
	return cache
}

// ProvideModelHandler 提供模型目录处理器
func ProvideModelHandler(reg *registry.Registry, cache handler.CatalogCache, cfg *config.Config) *handler.ModelHandler {
	return handler.NewModelHandler(reg, cache, cfg.Cache.ModelListTTL)
}

// ProvidePricingHandler 提供费率处理器
func ProvidePricingHandler(pricing *billing.PricingEngine, cache handler.CatalogCache, cfg *config.Config) *handler.PricingHandler {
	return handler.NewPricingHandler(pricing, cache, cfg.Cache.PricingTTL)
}
