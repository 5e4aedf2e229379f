package biz

import (
	"context"

	"leadpulse/cmd/admission-service/internal/domain"

	"go.uber.org/zap"
)

// AdmissionRequest 准入请求
type AdmissionRequest struct {
	// RequestKey 重放键：加密签名头优先，request-id 头兜底；为空则无重放保护
	RequestKey string
	TenantID   string
	// Cost 本次操作消耗的配额单位
	Cost      int64
	EntityID  string
	ActorID   string
	ActorType domain.ActorType
	SourceIP  string
	// Action 成功时写入审计的动作类型
	Action string
}

// HandlerOutcome 业务处理器的执行结果
type HandlerOutcome struct {
	EntityID string
	Before   map[string]interface{}
	After    map[string]interface{}
}

// HandlerFunc 业务处理器
// 背压提示只影响处理策略选择，不是准入门槛
type HandlerFunc func(ctx context.Context, hints domain.ProcessingHints) (*HandlerOutcome, error)

// AdmissionResult 准入执行结果
type AdmissionResult struct {
	Admitted bool
	Reason   domain.RejectReason
	Quota    *domain.QuotaReservation
	Hints    domain.ProcessingHints
	Outcome  *HandlerOutcome
}

// AdmissionPipeline 准入管道
// 固定顺序：重放防护（最廉价，先拦重复）→ 配额（贵的处理之前拦超额）→
// 背压提示 → 业务处理器 → 审计。无论处理器成败，审计都会留下记录
type AdmissionPipeline struct {
	replay       *ReplayGuard
	quota        *QuotaEnforcer
	backpressure *BackpressureController
	audit        *AuditRecorder
	logger       *zap.Logger
}

// NewAdmissionPipeline 创建准入管道
func NewAdmissionPipeline(
	replay *ReplayGuard,
	quota *QuotaEnforcer,
	backpressure *BackpressureController,
	audit *AuditRecorder,
	logger *zap.Logger,
) *AdmissionPipeline {
	return &AdmissionPipeline{
		replay:       replay,
		quota:        quota,
		backpressure: backpressure,
		audit:        audit,
		logger:       logger,
	}
}

// Execute 对一次变更请求执行完整的准入链路
// 业务拒绝通过 AdmissionResult 返回，不作为 error；error 只承载处理器自身的失败
func (p *AdmissionPipeline) Execute(ctx context.Context, req AdmissionRequest, handler HandlerFunc) (*AdmissionResult, error) {
	// 1. 重放防护；存储故障已在组件内 fail open，这里只需记录
	admission, err := p.replay.Admit(ctx, req.RequestKey)
	if err != nil {
		p.logger.Warn("replay guard degraded", zap.String("tenant_id", req.TenantID), zap.Error(err))
	}
	if admission == domain.AdmissionDuplicate {
		p.recordRejection(req, domain.RejectDuplicate)
		return &AdmissionResult{Admitted: false, Reason: domain.RejectDuplicate}, nil
	}

	// 2. 配额预留
	quota, err := p.quota.Reserve(ctx, req.TenantID, req.Cost)
	if err != nil {
		p.logger.Warn("quota enforcement degraded", zap.String("tenant_id", req.TenantID), zap.Error(err))
	}
	if !quota.Allowed {
		p.recordRejection(req, domain.RejectQuotaExceeded)
		return &AdmissionResult{Admitted: false, Reason: domain.RejectQuotaExceeded, Quota: quota}, nil
	}

	// 3. 背压提示（修饰器而非闸门）
	hints := p.backpressure.Hints(ctx)

	// 4. 业务处理器
	outcome, handlerErr := handler(ctx, hints)

	// 5. 审计：处理器失败乃至请求被取消，也要留下失败记录；
	//    已预留的配额不自动回退，由处理器显式补偿
	p.recordOutcome(req, outcome, handlerErr)

	return &AdmissionResult{
		Admitted: true,
		Quota:    quota,
		Hints:    hints,
		Outcome:  outcome,
	}, handlerErr
}

// recordRejection 审计一次准入拒绝
func (p *AdmissionPipeline) recordRejection(req AdmissionRequest, reason domain.RejectReason) {
	p.audit.Record(&domain.AuditRecord{
		EntityID:  req.EntityID,
		ActorID:   req.ActorID,
		Action:    domain.ActionLeadRejected,
		ActorType: req.ActorType,
		SourceIP:  req.SourceIP,
		Changes: domain.ChangeSet{
			After: map[string]interface{}{"reject_reason": string(reason)},
		},
	})
}

// recordOutcome 审计业务处理器的结局
func (p *AdmissionPipeline) recordOutcome(req AdmissionRequest, outcome *HandlerOutcome, handlerErr error) {
	entry := &domain.AuditRecord{
		EntityID:  req.EntityID,
		ActorID:   req.ActorID,
		Action:    req.Action,
		ActorType: req.ActorType,
		SourceIP:  req.SourceIP,
	}

	if outcome != nil {
		if outcome.EntityID != "" {
			entry.EntityID = outcome.EntityID
		}
		entry.Changes = domain.ChangeSet{Before: outcome.Before, After: outcome.After}
	}

	if handlerErr != nil {
		entry.Action = domain.ActionOperationFailed
		if entry.Changes.After == nil {
			entry.Changes.After = map[string]interface{}{}
		}
		entry.Changes.After["error"] = handlerErr.Error()
		entry.Changes.After["attempted_action"] = req.Action
	}

	p.audit.Record(entry)
}
