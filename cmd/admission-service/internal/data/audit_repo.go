package data

import (
	"context"
	"encoding/json"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"

	"gorm.io/gorm"
)

// AuditRecordDO 审计记录数据对象
type AuditRecordDO struct {
	ID        string `gorm:"primaryKey"`
	EntityID  string `gorm:"index:idx_audit_entity"`
	ActorID   string
	Action    string `gorm:"index:idx_audit_action"`
	Changes   string // before/after JSON
	ActorType string
	SourceIP  string
	CreatedAt time.Time `gorm:"index:idx_audit_created,sort:desc"`
}

// TableName 指定表名
func (AuditRecordDO) TableName() string {
	return "audit_records"
}

// AuditRepository 审计仓储实现
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db *gorm.DB) domain.AuditRepository {
	return &AuditRepository{db: db}
}

// Append 写入一条审计记录
func (r *AuditRepository) Append(ctx context.Context, record *domain.AuditRecord) error {
	do := r.toDataObject(record)
	return r.db.WithContext(ctx).Create(do).Error
}

// Trail 按实体查询审计轨迹，按创建时间倒序
func (r *AuditRepository) Trail(ctx context.Context, entityID string, limit int) ([]*domain.AuditRecord, error) {
	var dos []AuditRecordDO
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&dos).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainSlice(dos), nil
}

// Recent 查询最近的审计记录，action 为空表示不过滤
func (r *AuditRepository) Recent(ctx context.Context, limit int, action string) ([]*domain.AuditRecord, error) {
	query := r.db.WithContext(ctx)
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var dos []AuditRecordDO
	err := query.Order("created_at DESC").Limit(limit).Find(&dos).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainSlice(dos), nil
}

// toDataObject 转换为数据对象
func (r *AuditRepository) toDataObject(record *domain.AuditRecord) *AuditRecordDO {
	changesJSON, _ := json.Marshal(record.Changes)

	return &AuditRecordDO{
		ID:        record.ID,
		EntityID:  record.EntityID,
		ActorID:   record.ActorID,
		Action:    record.Action,
		Changes:   string(changesJSON),
		ActorType: string(record.ActorType),
		SourceIP:  record.SourceIP,
		CreatedAt: record.CreatedAt,
	}
}

// toDomain 转换为领域对象
func (r *AuditRepository) toDomain(do *AuditRecordDO) *domain.AuditRecord {
	var changes domain.ChangeSet
	_ = json.Unmarshal([]byte(do.Changes), &changes)

	return &domain.AuditRecord{
		ID:        do.ID,
		EntityID:  do.EntityID,
		ActorID:   do.ActorID,
		Action:    do.Action,
		Changes:   changes,
		ActorType: domain.ActorType(do.ActorType),
		SourceIP:  do.SourceIP,
		CreatedAt: do.CreatedAt,
	}
}

func (r *AuditRepository) toDomainSlice(dos []AuditRecordDO) []*domain.AuditRecord {
	records := make([]*domain.AuditRecord, len(dos))
	for i := range dos {
		records[i] = r.toDomain(&dos[i])
	}
	return records
}
