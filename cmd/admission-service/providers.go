package main

import (
	"context"

	"leadpulse/cmd/admission-service/internal/biz"
	"leadpulse/cmd/admission-service/internal/conf"
	"leadpulse/cmd/admission-service/internal/data"
	"leadpulse/pkg/auth"
	"leadpulse/pkg/cache"
	"leadpulse/pkg/clients/vendor"
	"leadpulse/pkg/events"
	"leadpulse/pkg/health"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideHealthChecker 注册数据库与共享存储的就绪检查
func provideHealthChecker(db *gorm.DB, store *cache.RedisStore) *health.HealthChecker {
	checker := health.NewHealthChecker()
	checker.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	checker.Register("redis", store.Ping)
	return checker
}

// provideDBConfig 数据库配置
func provideDBConfig(config *conf.Config) *data.DBConfig {
	return &data.DBConfig{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.DBName,
		SSLMode:         config.Database.SSLMode,
		MaxOpenConns:    config.Database.MaxOpenConns,
		MaxIdleConns:    config.Database.MaxIdleConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
	}
}

// provideRedisConfig 共享存储配置
func provideRedisConfig(config *conf.Config) *data.RedisConfig {
	return &data.RedisConfig{
		Addr:         config.Redis.Addr,
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
		MaxRetries:   config.Redis.MaxRetries,
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
	}
}

// providePublisherConfig Kafka 发布器配置
func providePublisherConfig(config *conf.Config) *events.PublisherConfig {
	pc := events.DefaultPublisherConfig()
	if len(config.Kafka.Brokers) > 0 {
		pc.Brokers = config.Kafka.Brokers
	}
	if config.Kafka.Topic != "" {
		pc.Topic = config.Kafka.Topic
	}
	return pc
}

// provideKafkaPublisher Kafka 发布器
func provideKafkaPublisher(pc *events.PublisherConfig) (events.Publisher, error) {
	return events.NewKafkaPublisher(pc)
}

// provideReplayGuardConfig 重放防护配置
func provideReplayGuardConfig(config *conf.Config) biz.ReplayGuardConfig {
	cfg := biz.DefaultReplayGuardConfig()
	if config.Admission.Replay.RetentionWindow > 0 {
		cfg.RetentionWindow = config.Admission.Replay.RetentionWindow
	}
	if config.Admission.Replay.StoreTimeout > 0 {
		cfg.StoreTimeout = config.Admission.Replay.StoreTimeout
	}
	return cfg
}

// provideQuotaConfig 配额配置
func provideQuotaConfig(config *conf.Config) biz.QuotaConfig {
	cfg := biz.DefaultQuotaConfig()
	if config.Admission.Quota.StoreTimeout > 0 {
		cfg.StoreTimeout = config.Admission.Quota.StoreTimeout
	}
	return cfg
}

// provideBackpressureConfig 背压阈值配置
func provideBackpressureConfig(config *conf.Config) biz.BackpressureConfig {
	cfg := biz.DefaultBackpressureConfig()
	bp := config.Admission.Backpressure
	if bp.SevereDepth > 0 {
		cfg.LightDepth = bp.LightDepth
		cfg.ModerateDepth = bp.ModerateDepth
		cfg.SevereDepth = bp.SevereDepth
	}
	if bp.GaugeTimeout > 0 {
		cfg.GaugeTimeout = bp.GaugeTimeout
	}
	return cfg
}

// provideAuditConfig 审计配置
func provideAuditConfig(config *conf.Config) biz.AuditConfig {
	cfg := biz.DefaultAuditConfig()
	if config.Admission.Audit.QueueSize > 0 {
		cfg.QueueSize = config.Admission.Audit.QueueSize
	}
	if config.Admission.Audit.WriteTimeout > 0 {
		cfg.WriteTimeout = config.Admission.Audit.WriteTimeout
	}
	return cfg
}

// provideJWTManager JWT 管理器
func provideJWTManager(config *conf.Config) *auth.JWTManager {
	return auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTExpiry)
}

// breakerConfig 供应商共用的熔断配置
func breakerConfig(config *conf.Config) vendor.BreakerConfig {
	b := config.Vendors.Breaker
	return vendor.BreakerConfig{
		Threshold:    b.Threshold,
		MinRequests:  b.MinRequests,
		Interval:     b.Interval,
		ResetTimeout: b.ResetTimeout,
	}
}

// provideWhatsAppClient WhatsApp 客户端
func provideWhatsAppClient(config *conf.Config, logger *zap.Logger) *vendor.WhatsAppClient {
	return vendor.NewWhatsAppClient(vendor.WhatsAppConfig{
		BaseURL:       config.Vendors.WhatsApp.BaseURL,
		AccessToken:   config.Vendors.WhatsApp.AccessToken,
		PhoneNumberID: config.Vendors.WhatsApp.PhoneNumberID,
		Breaker:       breakerConfig(config),
	}, logger)
}

// provideTwilioClient Twilio 语音客户端
func provideTwilioClient(config *conf.Config, logger *zap.Logger) *vendor.TwilioVoiceClient {
	return vendor.NewTwilioVoiceClient(vendor.TwilioConfig{
		BaseURL:    config.Vendors.Twilio.BaseURL,
		AccountSID: config.Vendors.Twilio.AccountSID,
		AuthToken:  config.Vendors.Twilio.AuthToken,
		FromNumber: config.Vendors.Twilio.FromNumber,
		Breaker:    breakerConfig(config),
	}, logger)
}

// provideKlickTippClient KlickTipp 客户端
func provideKlickTippClient(config *conf.Config, logger *zap.Logger) *vendor.KlickTippClient {
	return vendor.NewKlickTippClient(vendor.KlickTippConfig{
		BaseURL: config.Vendors.KlickTipp.BaseURL,
		APIKey:  config.Vendors.KlickTipp.APIKey,
		Breaker: breakerConfig(config),
	}, logger)
}
