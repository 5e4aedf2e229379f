package domain

import (
	"context"
)

// TenantRepository 租户仓储
type TenantRepository interface {
	// GetTenant 按 ID 查询租户，不存在返回 ErrTenantNotFound
	GetTenant(ctx context.Context, id string) (*Tenant, error)
}

// AuditRepository 审计仓储（仅追加）
type AuditRepository interface {
	// Append 写入一条审计记录
	Append(ctx context.Context, record *AuditRecord) error
	// Trail 按实体查询审计轨迹，按创建时间倒序
	Trail(ctx context.Context, entityID string, limit int) ([]*AuditRecord, error)
	// Recent 查询最近的审计记录，action 为空表示不过滤
	Recent(ctx context.Context, limit int, action string) ([]*AuditRecord, error)
}

// LeadRepository 线索仓储
type LeadRepository interface {
	CreateLead(ctx context.Context, lead *Lead) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	UpdateStatus(ctx context.Context, id string, status LeadStatus) error
}

// QueueDepthGauge 待发队列深度信号（非负整数）
type QueueDepthGauge interface {
	Depth(ctx context.Context) (int64, error)
}

// EventPublisher 线索生命周期事件发布器
type EventPublisher interface {
	Publish(ctx context.Context, event *LeadEvent) error
}
