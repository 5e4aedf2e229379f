package app

import (
	"context"
	"time"

	"leadpulse/cmd/admission-service/internal/biz"
	"leadpulse/cmd/admission-service/internal/server"
	"leadpulse/pkg/cache"
	"leadpulse/pkg/events"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用程序
type App struct {
	Logger     *zap.Logger
	HTTPServer *server.HTTPServer
	DB         *gorm.DB
	Store      *cache.RedisStore
	Publisher  events.Publisher
	Audit      *biz.AuditRecorder
}

// NewApp 创建应用程序
func NewApp(
	logger *zap.Logger,
	httpServer *server.HTTPServer,
	db *gorm.DB,
	store *cache.RedisStore,
	publisher events.Publisher,
	audit *biz.AuditRecorder,
) *App {
	return &App{
		Logger:     logger,
		HTTPServer: httpServer,
		DB:         db,
		Store:      store,
		Publisher:  publisher,
		Audit:      audit,
	}
}

// Start 启动应用
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("Application started successfully")
	return nil
}

// Cleanup 清理资源
// 先排空审计队列再断开下游连接，避免丢掉关停前的最后一批记录
func (a *App) Cleanup() error {
	a.Logger.Info("Cleaning up resources...")

	if a.Audit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.Audit.Close(ctx); err != nil {
			a.Logger.Error("Failed to drain audit queue", zap.Error(err))
		}
		cancel()
	}

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error("Failed to close shared store", zap.Error(err))
		}
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("Failed to close database", zap.Error(err))
			}
		}
	}

	return nil
}
