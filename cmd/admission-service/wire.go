//go:build wireinject
// +build wireinject

package main

import (
	"leadpulse/cmd/admission-service/internal/app"
	"leadpulse/cmd/admission-service/internal/biz"
	"leadpulse/cmd/admission-service/internal/conf"
	"leadpulse/cmd/admission-service/internal/data"
	"leadpulse/cmd/admission-service/internal/server"
	"leadpulse/cmd/admission-service/internal/service"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// initApp 初始化应用
func initApp(config *conf.Config, logger *zap.Logger) (*app.App, func(), error) {
	wire.Build(
		// 配置拆分
		provideDBConfig,
		provideRedisConfig,
		providePublisherConfig,
		provideReplayGuardConfig,
		provideQuotaConfig,
		provideBackpressureConfig,
		provideAuditConfig,
		provideJWTManager,
		provideHealthChecker,
		provideWhatsAppClient,
		provideTwilioClient,
		provideKlickTippClient,

		// Data 层
		data.NewDB,
		data.NewSharedStore,
		provideKafkaPublisher,
		data.NewTenantRepository,
		data.NewLeadRepository,
		data.NewAuditRepository,
		data.NewPendingQueueGauge,
		data.NewLeadEventPublisher,

		// Biz 层
		biz.NewReplayGuard,
		biz.NewQuotaEnforcer,
		biz.NewBackpressureController,
		biz.NewAuditRecorder,
		biz.NewAdmissionPipeline,
		biz.NewLeadUsecase,

		// Service 层
		service.NewAdmissionService,

		// Server 层
		server.NewHTTPServer,

		// App
		app.NewApp,
	)

	return nil, nil, nil
}
