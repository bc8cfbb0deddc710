// Package main 用量导出与审计消费者入口（audit-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cloudeasyml-api/internal/config"
	"cloudeasyml-api/internal/infrastructure/billing"
	"cloudeasyml-api/internal/infrastructure/messaging"
	"cloudeasyml-api/internal/wire"
	"cloudeasyml-api/pkg/logger"
	"cloudeasyml-api/pkg/tracer"
)

// dlqAlertThreshold 死信队列告警阈值
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "audit-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	dataLayer, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	if dataLayer.RedisClient == nil {
		logger.Fatal(ctx, "audit-worker requires redis", fmt.Errorf("cache.redis is disabled or unreachable"))
	}

	var reporter UsageReporter
	if cfg.Billing.Stripe.Enabled {
		stripeReporter, err := billing.NewStripeReporter(&cfg.Billing.Stripe)
		if err != nil {
			logger.Fatal(ctx, "failed to init stripe reporter", err)
		}
		reporter = stripeReporter
	} else {
		logger.Info(ctx, "stripe export disabled, usage events will only be acknowledged")
	}

	streamCfg := cfg.Messaging.RedisStream
	newConsumer := func(stream messaging.Stream, group messaging.ConsumerGroup) *messaging.Consumer {
		return messaging.NewConsumer(dataLayer.RedisClient.Redis(), messaging.ConsumerConfig{
			Stream:        stream,
			Group:         group,
			ConsumerName:  hostnameConsumerName(),
			BlockTimeout:  streamCfg.BlockTimeout,
			ClaimInterval: streamCfg.ClaimInterval,
			RetryLimit:    streamCfg.RetryLimit,
			Backoff: messaging.BackoffConfig{
				Initial:    streamCfg.RetryBackoff.Initial,
				Max:        streamCfg.RetryBackoff.Max,
				Multiplier: streamCfg.RetryBackoff.Multiplier,
			},
		})
	}

	usageConsumer := newConsumer(messaging.StreamUsageEvents, messaging.ConsumerGroupBillingExporter)
	usageConsumer.RegisterHandler(messaging.MessageTypeUsage, NewUsageHandler(dataLayer.UserRepo, reporter))

	auditConsumer := newConsumer(messaging.StreamAuditLog, messaging.ConsumerGroupArchiver)
	auditConsumer.RegisterHandler(messaging.MessageTypeAudit, HandleAuditEvent)

	for _, consumer := range []*messaging.Consumer{usageConsumer, auditConsumer} {
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal(ctx, "failed to start consumer", err)
		}
		go consumer.MonitorDLQ(ctx, dlqAlertThreshold)
	}

	log := logger.FromContext(ctx)
	log.Info("audit-worker started", "stripe_enabled", reporter != nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("audit-worker shutting down")
	usageConsumer.Stop()
	auditConsumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
