package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/cache"
	"leadpulse/pkg/monitoring"

	"go.uber.org/zap"
)

// QuotaConfig 配额配置
type QuotaConfig struct {
	// StoreTimeout 单次计数存储调用的超时上限
	StoreTimeout time.Duration
}

// DefaultQuotaConfig 默认配置
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		StoreTimeout: 500 * time.Millisecond,
	}
}

// QuotaEnforcer 每日消耗限额器
// 检查与自增由存储端脚本一次完成，同一 (租户, 日) 键上的并发预留线性一致，
// 不存在先读后写的超卖窗口；计数键在租户本地午夜随过期自动重置
type QuotaEnforcer struct {
	tenants domain.TenantRepository
	store   cache.Store
	config  QuotaConfig
	logger  *zap.Logger
}

// NewQuotaEnforcer 创建限额器
func NewQuotaEnforcer(tenants domain.TenantRepository, store cache.Store, config QuotaConfig, logger *zap.Logger) *QuotaEnforcer {
	if config.StoreTimeout == 0 {
		config = DefaultQuotaConfig()
	}
	return &QuotaEnforcer{
		tenants: tenants,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// Reserve 预留配额
// 超限时不改变任何状态并报告缺口；基础设施错误放行（fail open），
// 配额是成本护栏而非安全边界，可用性优先于严格执行
func (e *QuotaEnforcer) Reserve(ctx context.Context, tenantID string, amount int64) (*domain.QuotaReservation, error) {
	tier, loc := e.resolveTier(ctx, tenantID)
	ceiling := tier.DailyCeiling()

	now := time.Now().In(loc)
	key := e.buildKey(tenantID, now)
	ttl := secondsUntilMidnight(now)

	storeCtx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	allowed, current, err := e.store.IncrWithCeiling(storeCtx, key, amount, ceiling, ttl)
	if err != nil {
		e.logger.Error("quota store unreachable, failing open",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return &domain.QuotaReservation{
			Allowed:  true,
			Limit:    ceiling,
			Tier:     tier,
			FailOpen: true,
		}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if !allowed {
		monitoring.QuotaRejections.WithLabelValues(tenantID, string(tier)).Inc()
		monitoring.AdmissionDecisions.WithLabelValues("quota", "rejected").Inc()
		return &domain.QuotaReservation{
			Allowed:   false,
			Burned:    current,
			Limit:     ceiling,
			Remaining: ceiling - current,
			Tier:      tier,
		}, nil
	}

	monitoring.QuotaBurned.WithLabelValues(tenantID, string(tier)).Add(float64(amount))
	monitoring.AdmissionDecisions.WithLabelValues("quota", "allowed").Inc()
	return &domain.QuotaReservation{
		Allowed:   true,
		Burned:    current,
		Limit:     ceiling,
		Remaining: ceiling - current,
		Tier:      tier,
	}, nil
}

// Release 补偿性回退
// 只在调用方明确回滚已预留的工作时使用，不会自动触发
func (e *QuotaEnforcer) Release(ctx context.Context, tenantID string, amount int64) error {
	_, loc := e.resolveTier(ctx, tenantID)
	now := time.Now().In(loc)

	ctx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	if _, err := e.store.DecrBy(ctx, e.buildKey(tenantID, now), amount); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// Usage 查询当日用量（只读，不预留）
// 键不存在按零用量处理；存储故障与"还没消耗"必须可区分，
// 否则状态接口会把一次故障呈现成零用量
func (e *QuotaEnforcer) Usage(ctx context.Context, tenantID string) (*domain.QuotaReservation, error) {
	tier, loc := e.resolveTier(ctx, tenantID)
	ceiling := tier.DailyCeiling()
	now := time.Now().In(loc)

	ctx, cancel := context.WithTimeout(ctx, e.config.StoreTimeout)
	defer cancel()

	var burned int64
	raw, err := e.store.Get(ctx, e.buildKey(tenantID, now))
	switch {
	case err == nil:
		burned, _ = strconv.ParseInt(raw, 10, 64)
	case errors.Is(err, cache.ErrNotFound):
		// 当日还没有消耗
	default:
		e.logger.Error("quota store unreachable, usage unknown",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return &domain.QuotaReservation{
			Allowed:  true,
			Limit:    ceiling,
			Tier:     tier,
			FailOpen: true,
		}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &domain.QuotaReservation{
		Allowed:   burned < ceiling,
		Burned:    burned,
		Limit:     ceiling,
		Remaining: ceiling - burned,
		Tier:      tier,
	}, nil
}

// resolveTier 解析租户档位与时区
// 租户未知或查询失败一律按最低档、UTC 处理
func (e *QuotaEnforcer) resolveTier(ctx context.Context, tenantID string) (domain.TenantTier, *time.Location) {
	tenant, err := e.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		if err != domain.ErrTenantNotFound {
			e.logger.Warn("tenant lookup failed, defaulting to lowest tier",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
		return domain.TierStarter, time.UTC
	}
	if !tenant.Tier.Valid() {
		return domain.TierStarter, tenant.Location()
	}
	return tenant.Tier, tenant.Location()
}

// buildKey 构建计数键，按租户本地日期分桶
func (e *QuotaEnforcer) buildKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("burn:%s:%s", tenantID, now.Format("2006-01-02"))
}

// secondsUntilMidnight 距下一个本地午夜的时长
func secondsUntilMidnight(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}
