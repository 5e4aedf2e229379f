package biz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"leadpulse/cmd/admission-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQuotaEnforcer(store *memStore, tenants *memTenantRepo) *QuotaEnforcer {
	return NewQuotaEnforcer(tenants, store, DefaultQuotaConfig(), zap.NewNop())
}

func starterTenant(id string) *domain.Tenant {
	return &domain.Tenant{ID: id, Tier: domain.TierStarter, Timezone: "UTC", Active: true}
}

func TestQuotaEnforcer_ReserveWithinCeiling(t *testing.T) {
	enforcer := newTestQuotaEnforcer(newMemStore(), newMemTenantRepo(starterTenant("t1")))
	ctx := context.Background()

	// tier_1 每日上限 8：3 + 3 允许
	r1, err := enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)
	assert.True(t, r1.Allowed)
	assert.Equal(t, int64(3), r1.Burned)
	assert.Equal(t, int64(8), r1.Limit)
	assert.Equal(t, int64(5), r1.Remaining)

	r2, err := enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)
	assert.True(t, r2.Allowed)
	assert.Equal(t, int64(6), r2.Burned)
}

func TestQuotaEnforcer_RejectionLeavesCounterUntouched(t *testing.T) {
	store := newMemStore()
	enforcer := newTestQuotaEnforcer(store, newMemTenantRepo(starterTenant("t1")))
	ctx := context.Background()

	_, err := enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)
	_, err = enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)

	// 6 + 3 超过 8：拒绝且不消耗
	r3, err := enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)
	assert.False(t, r3.Allowed)
	assert.Equal(t, int64(6), r3.Burned)
	assert.Equal(t, int64(8), r3.Limit)
	assert.Equal(t, int64(2), r3.Remaining)

	// 更小的请求仍然可以用掉剩余额度
	r4, err := enforcer.Reserve(ctx, "t1", 2)
	require.NoError(t, err)
	assert.True(t, r4.Allowed)
	assert.Equal(t, int64(8), r4.Burned)
	assert.Equal(t, int64(0), r4.Remaining)
}

func TestQuotaEnforcer_UnknownTenantGetsLowestTier(t *testing.T) {
	enforcer := newTestQuotaEnforcer(newMemStore(), newMemTenantRepo())

	r, err := enforcer.Reserve(context.Background(), "ghost", 1)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, domain.TierStarter, r.Tier)
	assert.Equal(t, int64(8), r.Limit)
}

func TestQuotaEnforcer_StoreDownFailsOpen(t *testing.T) {
	store := newMemStore()
	store.failWith(errors.New("connection refused"))
	enforcer := newTestQuotaEnforcer(store, newMemTenantRepo(starterTenant("t1")))

	r, err := enforcer.Reserve(context.Background(), "t1", 3)
	assert.True(t, r.Allowed)
	assert.True(t, r.FailOpen)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestQuotaEnforcer_ConcurrentReservationsNeverOversell(t *testing.T) {
	tenant := &domain.Tenant{ID: "t4", Tier: domain.TierUltimate, Timezone: "UTC", Active: true}
	enforcer := newTestQuotaEnforcer(newMemStore(), newMemTenantRepo(tenant))
	ctx := context.Background()

	// tier_4 上限 32，100 个并发预留恰好放行 32 个
	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := enforcer.Reserve(ctx, "t4", 1)
			if err == nil && r.Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(32), allowed)

	usage, err := enforcer.Usage(ctx, "t4")
	require.NoError(t, err)
	assert.Equal(t, int64(32), usage.Burned)
	assert.Equal(t, int64(0), usage.Remaining)
}

func TestQuotaEnforcer_ReleaseCompensates(t *testing.T) {
	enforcer := newTestQuotaEnforcer(newMemStore(), newMemTenantRepo(starterTenant("t1")))
	ctx := context.Background()

	_, err := enforcer.Reserve(ctx, "t1", 3)
	require.NoError(t, err)

	require.NoError(t, enforcer.Release(ctx, "t1", 3))

	usage, err := enforcer.Usage(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Burned)
}

func TestQuotaEnforcer_UsageIsReadOnly(t *testing.T) {
	enforcer := newTestQuotaEnforcer(newMemStore(), newMemTenantRepo(starterTenant("t1")))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		usage, err := enforcer.Usage(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), usage.Burned)
	}
}

func TestQuotaEnforcer_UsageStoreDownMarksFailOpen(t *testing.T) {
	store := newMemStore()
	store.failWith(errors.New("connection refused"))
	enforcer := newTestQuotaEnforcer(store, newMemTenantRepo(starterTenant("t1")))

	// 存储故障必须与零用量可区分
	usage, err := enforcer.Usage(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.NotNil(t, usage)
	assert.True(t, usage.FailOpen)
}

func TestTierCeilings(t *testing.T) {
	tests := []struct {
		tier    domain.TenantTier
		ceiling int64
		price   int
	}{
		{domain.TierStarter, 8, 49},
		{domain.TierGrowth, 16, 99},
		{domain.TierScale, 24, 149},
		{domain.TierUltimate, 32, 199},
		{domain.TenantTier("unknown"), 8, 49},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ceiling, tt.tier.DailyCeiling(), "tier %s", tt.tier)
		assert.Equal(t, tt.price, tt.tier.MonthlyPriceEUR(), "tier %s", tt.tier)
	}
}
