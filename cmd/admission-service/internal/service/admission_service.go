package service

import (
	"context"

	"leadpulse/cmd/admission-service/internal/biz"
	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/clients/vendor"

	"go.uber.org/zap"
)

// AdmissionService 准入服务层
// 把 HTTP 入口的变更请求接到准入管道，并选择对应的业务处理器
type AdmissionService struct {
	pipeline *biz.AdmissionPipeline
	leads    *biz.LeadUsecase
	quota    *biz.QuotaEnforcer
	audit    *biz.AuditRecorder
	logger   *zap.Logger
}

// NewAdmissionService 创建准入服务
func NewAdmissionService(
	pipeline *biz.AdmissionPipeline,
	leads *biz.LeadUsecase,
	quota *biz.QuotaEnforcer,
	audit *biz.AuditRecorder,
	logger *zap.Logger,
) *AdmissionService {
	return &AdmissionService{
		pipeline: pipeline,
		leads:    leads,
		quota:    quota,
		audit:    audit,
		logger:   logger,
	}
}

// RequestMeta 一次变更请求的准入元数据
type RequestMeta struct {
	RequestKey string
	TenantID   string
	ActorID    string
	ActorType  domain.ActorType
	SourceIP   string
}

// IngestLead 线索接收（Webhook 或 API）
func (s *AdmissionService) IngestLead(ctx context.Context, meta RequestMeta, lead *domain.Lead) (*biz.AdmissionResult, error) {
	lead.TenantID = meta.TenantID

	req := biz.AdmissionRequest{
		RequestKey: meta.RequestKey,
		TenantID:   meta.TenantID,
		Cost:       1,
		ActorID:    meta.ActorID,
		ActorType:  meta.ActorType,
		SourceIP:   meta.SourceIP,
		Action:     domain.ActionLeadIngested,
	}

	return s.pipeline.Execute(ctx, req, func(ctx context.Context, hints domain.ProcessingHints) (*biz.HandlerOutcome, error) {
		return s.leads.IngestLead(ctx, lead, hints)
	})
}

// RelayMessage 出站消息转发
// 返回值带上供应商结果，熔断降级时服务端据此返回结构化 503
func (s *AdmissionService) RelayMessage(ctx context.Context, meta RequestMeta, msg *domain.OutboundMessage) (*biz.AdmissionResult, *vendor.Result, error) {
	msg.TenantID = meta.TenantID

	req := biz.AdmissionRequest{
		RequestKey: meta.RequestKey,
		TenantID:   meta.TenantID,
		Cost:       1,
		EntityID:   msg.LeadID,
		ActorID:    meta.ActorID,
		ActorType:  meta.ActorType,
		SourceIP:   meta.SourceIP,
		Action:     domain.ActionMessageRelayed,
	}

	var vendorResult *vendor.Result
	result, err := s.pipeline.Execute(ctx, req, func(ctx context.Context, hints domain.ProcessingHints) (*biz.HandlerOutcome, error) {
		outcome, res, err := s.leads.RelayMessage(ctx, msg, hints)
		vendorResult = res
		return outcome, err
	})

	return result, vendorResult, err
}

// QuotaStatus 查询租户当日配额状态（只读）
func (s *AdmissionService) QuotaStatus(ctx context.Context, tenantID string) (*domain.QuotaReservation, error) {
	return s.quota.Usage(ctx, tenantID)
}

// AuditTrail 查询实体的审计轨迹
func (s *AdmissionService) AuditTrail(ctx context.Context, entityID string, limit int) ([]*domain.AuditRecord, error) {
	return s.audit.Trail(ctx, entityID, limit)
}

// AuditRecent 查询最近的审计记录
func (s *AdmissionService) AuditRecent(ctx context.Context, limit int, action string) ([]*domain.AuditRecord, error) {
	return s.audit.Recent(ctx, limit, action)
}
