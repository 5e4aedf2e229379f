package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/cache"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tenantCacheTTL 租户档位缓存时长
const tenantCacheTTL = 5 * time.Minute

// TenantDO 租户数据对象
type TenantDO struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Tier      string
	Timezone  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (TenantDO) TableName() string {
	return "tenants"
}

// TenantRepository 租户仓储实现（数据库查询 + 共享缓存）
type TenantRepository struct {
	db     *gorm.DB
	store  cache.Store
	logger *zap.Logger
}

// NewTenantRepository 创建租户仓储
func NewTenantRepository(db *gorm.DB, store cache.Store, logger *zap.Logger) domain.TenantRepository {
	return &TenantRepository{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// GetTenant 按 ID 查询租户，优先走缓存
func (r *TenantRepository) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	cacheKey := "tenant:" + id

	if cached, err := r.store.Get(ctx, cacheKey); err == nil {
		var tenant domain.Tenant
		if err := json.Unmarshal([]byte(cached), &tenant); err == nil {
			return &tenant, nil
		}
	}

	var do TenantDO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&do).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}

	tenant := r.toDomain(&do)

	// 缓存写入失败只记日志，不影响查询结果
	if payload, err := json.Marshal(tenant); err == nil {
		if err := r.store.Set(ctx, cacheKey, payload, tenantCacheTTL); err != nil {
			r.logger.Warn("failed to cache tenant", zap.String("tenant_id", id), zap.Error(err))
		}
	}

	return tenant, nil
}

// toDomain 转换为领域对象
func (r *TenantRepository) toDomain(do *TenantDO) *domain.Tenant {
	return &domain.Tenant{
		ID:        do.ID,
		Name:      do.Name,
		Tier:      domain.TenantTier(do.Tier),
		Timezone:  do.Timezone,
		Active:    do.Active,
		CreatedAt: do.CreatedAt,
		UpdatedAt: do.UpdatedAt,
	}
}
