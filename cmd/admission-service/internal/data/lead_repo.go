package data

import (
	"context"
	"errors"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"

	"gorm.io/gorm"
)

// LeadDO 线索数据对象
type LeadDO struct {
	ID        string `gorm:"primaryKey"`
	TenantID  string `gorm:"index:idx_leads_tenant"`
	Name      string
	Phone     string
	Email     string
	Channel   string
	Status    string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (LeadDO) TableName() string {
	return "leads"
}

// LeadRepository 线索仓储实现
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository 创建线索仓储
func NewLeadRepository(db *gorm.DB) domain.LeadRepository {
	return &LeadRepository{db: db}
}

// CreateLead 创建线索
func (r *LeadRepository) CreateLead(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(r.toDataObject(lead)).Error
}

// GetLead 获取线索
func (r *LeadRepository) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	var do LeadDO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&do).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return r.toDomain(&do), nil
}

// UpdateStatus 更新线索状态
func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	result := r.db.WithContext(ctx).
		Model(&LeadDO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

// toDataObject 转换为数据对象
func (r *LeadRepository) toDataObject(lead *domain.Lead) *LeadDO {
	return &LeadDO{
		ID:        lead.ID,
		TenantID:  lead.TenantID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Channel:   string(lead.Channel),
		Status:    string(lead.Status),
		Source:    lead.Source,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
}

// toDomain 转换为领域对象
func (r *LeadRepository) toDomain(do *LeadDO) *domain.Lead {
	return &domain.Lead{
		ID:        do.ID,
		TenantID:  do.TenantID,
		Name:      do.Name,
		Phone:     do.Phone,
		Email:     do.Email,
		Channel:   domain.LeadChannel(do.Channel),
		Status:    domain.LeadStatus(do.Status),
		Source:    do.Source,
		CreatedAt: do.CreatedAt,
		UpdatedAt: do.UpdatedAt,
	}
}
