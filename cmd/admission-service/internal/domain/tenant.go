package domain

import (
	"time"
)

// TenantTier 租户订阅档位
type TenantTier string

const (
	// TierStarter 入门档（默认档位）
	TierStarter TenantTier = "tier_1"
	// TierGrowth 成长档
	TierGrowth TenantTier = "tier_2"
	// TierScale 扩展档
	TierScale TenantTier = "tier_3"
	// TierUltimate 旗舰档
	TierUltimate TenantTier = "tier_4"
)

// tierCeilings 各档位每日消耗上限（单位/天）
var tierCeilings = map[TenantTier]int64{
	TierStarter:  8,
	TierGrowth:   16,
	TierScale:    24,
	TierUltimate: 32,
}

// tierPricesEUR 各档位月度价格（欧元）
var tierPricesEUR = map[TenantTier]int{
	TierStarter:  49,
	TierGrowth:   99,
	TierScale:    149,
	TierUltimate: 199,
}

// DailyCeiling 返回档位的每日消耗上限
// 未知档位按最低档处理，宁可保守限额也不放开无限消耗
func (t TenantTier) DailyCeiling() int64 {
	if ceiling, ok := tierCeilings[t]; ok {
		return ceiling
	}
	return tierCeilings[TierStarter]
}

// MonthlyPriceEUR 返回档位的月度价格
func (t TenantTier) MonthlyPriceEUR() int {
	if price, ok := tierPricesEUR[t]; ok {
		return price
	}
	return tierPricesEUR[TierStarter]
}

// Valid 判断档位是否合法
func (t TenantTier) Valid() bool {
	_, ok := tierCeilings[t]
	return ok
}

// Tenant 租户记录
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Tier      TenantTier `json:"tier"`
	Timezone  string     `json:"timezone"` // IANA 时区名，决定配额重置的本地午夜
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Location 返回租户时区，解析失败回退到 UTC
func (t *Tenant) Location() *time.Location {
	if t == nil || t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
