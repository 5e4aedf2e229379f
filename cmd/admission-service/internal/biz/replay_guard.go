package biz

import (
	"context"
	"fmt"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/cache"
	"leadpulse/pkg/monitoring"

	"go.uber.org/zap"
)

// ReplayGuardConfig 重放防护配置
type ReplayGuardConfig struct {
	// RetentionWindow 幂等键保留窗口，必须大于上游 Webhook 的最大重投间隔
	RetentionWindow time.Duration
	// StoreTimeout 单次存储调用的超时上限
	StoreTimeout time.Duration
}

// DefaultReplayGuardConfig 默认配置
func DefaultReplayGuardConfig() ReplayGuardConfig {
	return ReplayGuardConfig{
		RetentionWindow: 15 * time.Minute,
		StoreTimeout:    500 * time.Millisecond,
	}
}

// ReplayGuard 重放防护
// 用共享存储的 SetNX 抑制 Webhook 重复投递；存储不可用时放行（fail open），
// 重复抑制是纵深防御层，不是正确性的最终依据
type ReplayGuard struct {
	store  cache.Store
	config ReplayGuardConfig
	logger *zap.Logger
}

// NewReplayGuard 创建重放防护
func NewReplayGuard(store cache.Store, config ReplayGuardConfig, logger *zap.Logger) *ReplayGuard {
	if config.RetentionWindow == 0 {
		config = DefaultReplayGuardConfig()
	}
	return &ReplayGuard{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Admit 检查请求键是否首次出现
// 键为空表示请求没有可用的幂等标识，无法做重放保护，直接放行；
// 存储错误随 accept 一并返回，调用方可以区分 fail-open 与正常放行
func (g *ReplayGuard) Admit(ctx context.Context, requestKey string) (domain.Admission, error) {
	if requestKey == "" {
		return domain.AdmissionAccept, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.StoreTimeout)
	defer cancel()

	created, err := g.store.SetNX(ctx, g.buildKey(requestKey), time.Now().Unix(), g.config.RetentionWindow)
	if err != nil {
		g.logger.Error("replay guard store unreachable, failing open",
			zap.String("request_key", requestKey),
			zap.Error(err),
		)
		monitoring.ReplayFailOpen.Inc()
		return domain.AdmissionAccept, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if !created {
		monitoring.AdmissionDecisions.WithLabelValues("replay", "duplicate").Inc()
		return domain.AdmissionDuplicate, nil
	}

	monitoring.AdmissionDecisions.WithLabelValues("replay", "accept").Inc()
	return domain.AdmissionAccept, nil
}

// buildKey 构建存储键
func (g *ReplayGuard) buildKey(requestKey string) string {
	return "replay:" + requestKey
}
