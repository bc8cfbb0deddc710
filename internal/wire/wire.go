//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"cloudeasyml-api/internal/application/apikey"
	"cloudeasyml-api/internal/application/billing"
	"cloudeasyml-api/internal/application/serving"
	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/domain/repository"
	"cloudeasyml-api/internal/infrastructure/persistence/postgres"
	"cloudeasyml-api/internal/interfaces/http/handler"
	"cloudeasyml-api/internal/interfaces/http/router"
)

// InitializeDataLayer 初始化数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		ProvideRedisClientOptional,
		ProvideCacheOptional,
		ProvideMessagingProducerOptional,
		wire.Struct(new(DataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeDatabaseOnly 仅初始化数据库（用于 bootstrap）
func InitializeDatabaseOnly(ctx context.Context, cfg *config.Config) (*DatabaseOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(DatabaseOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet 数据库提供者集合
var PostgresSet = wire.NewSet(
	ProvideDatabaseClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewAPIKeyRepository,
	postgres.NewDeploymentRepository,
	postgres.NewUsageRecordRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.APIKeyRepository), new(*postgres.APIKeyRepository)),
	wire.Bind(new(repository.DeploymentRepository), new(*postgres.DeploymentRepository)),
	wire.Bind(new(repository.UsageRecordRepository), new(*postgres.UsageRecordRepository)),
)

// RedisSet Redis 提供者集合，未启用时均为空
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideCacheOptional,
	ProvideRateLimiterOptional,
)

// MessagingSet 消息提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducerOptional,
	ProvideUsagePublisher,
	ProvideAuditPublisher,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	ProvideAPIKeyManager,
	apikey.NewGate,
	ProvidePricingEngine,
	billing.NewUsageTracker,
	ProvideRegistry,
	serving.NewService,
)

// RouterSet 路由提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthHandler,
	ProvideCatalogCache,
	ProvideModelHandler,
	handler.NewHealthHandler,
	handler.NewUserHandler,
	handler.NewAPIKeyHandler,
	handler.NewDeploymentHandler,
	handler.NewPredictionHandler,
	handler.NewUsageHandler,
	ProvidePricingHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	wire.Struct(new(router.RouterDeps), "*"),
	router.NewWithDeps,
)
