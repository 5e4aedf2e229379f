package biz

import (
	"context"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/clients/vendor"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadUsecase 线索业务处理器
// 准入管道保护的业务端：入库、经由各自熔断器的外呼、生命周期事件
type LeadUsecase struct {
	leads     domain.LeadRepository
	publisher domain.EventPublisher
	whatsapp  *vendor.WhatsAppClient
	twilio    *vendor.TwilioVoiceClient
	klicktipp *vendor.KlickTippClient
	logger    *zap.Logger
}

// NewLeadUsecase 创建线索业务处理器
func NewLeadUsecase(
	leads domain.LeadRepository,
	publisher domain.EventPublisher,
	whatsapp *vendor.WhatsAppClient,
	twilio *vendor.TwilioVoiceClient,
	klicktipp *vendor.KlickTippClient,
	logger *zap.Logger,
) *LeadUsecase {
	return &LeadUsecase{
		leads:     leads,
		publisher: publisher,
		whatsapp:  whatsapp,
		twilio:    twilio,
		klicktipp: klicktipp,
		logger:    logger,
	}
}

// IngestLead 接收一条新线索
func (uc *LeadUsecase) IngestLead(ctx context.Context, lead *domain.Lead, hints domain.ProcessingHints) (*HandlerOutcome, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if err := uc.leads.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, "lead.ingested", lead.TenantID, lead.ID, map[string]interface{}{
		"channel": string(lead.Channel),
		"source":  lead.Source,
	}, hints)

	return &HandlerOutcome{
		EntityID: lead.ID,
		After: map[string]interface{}{
			"status":  string(lead.Status),
			"channel": string(lead.Channel),
			"source":  lead.Source,
		},
	}, nil
}

// RelayMessage 经对应渠道的熔断客户端转发出站消息
// 熔断开启时返回降级结果与 ErrVendorUnavailable，调用方据此返回结构化 503
func (uc *LeadUsecase) RelayMessage(ctx context.Context, msg *domain.OutboundMessage, hints domain.ProcessingHints) (*HandlerOutcome, *vendor.Result, error) {
	lead, err := uc.leads.GetLead(ctx, msg.LeadID)
	if err != nil {
		return nil, nil, err
	}

	// 重度背压只允许模板化内容
	if hints.TemplatesOnly {
		msg.Template = true
	}

	result, err := uc.dispatch(ctx, lead, msg)
	if err != nil {
		return nil, nil, err
	}

	if result.Fallback {
		return nil, result, domain.ErrVendorUnavailable
	}

	if err := uc.leads.UpdateStatus(ctx, lead.ID, domain.LeadStatusEngaged); err != nil {
		uc.logger.Warn("failed to update lead status after relay",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}

	uc.publishEvent(ctx, "message.relayed", lead.TenantID, lead.ID, map[string]interface{}{
		"channel":  string(msg.Channel),
		"template": msg.Template,
	}, hints)

	outcome := &HandlerOutcome{
		EntityID: lead.ID,
		Before:   map[string]interface{}{"status": string(lead.Status)},
		After: map[string]interface{}{
			"status":   string(domain.LeadStatusEngaged),
			"channel":  string(msg.Channel),
			"template": msg.Template,
		},
	}
	return outcome, result, nil
}

// dispatch 按渠道分发到对应的供应商客户端
func (uc *LeadUsecase) dispatch(ctx context.Context, lead *domain.Lead, msg *domain.OutboundMessage) (*vendor.Result, error) {
	switch msg.Channel {
	case domain.ChannelWhatsApp:
		if msg.Template {
			return uc.whatsapp.SendTemplate(ctx, lead.Phone, "follow_up", "de")
		}
		return uc.whatsapp.SendText(ctx, lead.Phone, msg.Body)

	case domain.ChannelVoice:
		return uc.twilio.TriggerCall(ctx, lead.Phone, msg.Body)

	case domain.ChannelEmail:
		return uc.klicktipp.Tag(ctx, lead.Email, msg.Body)

	default:
		return nil, domain.ErrInvalidChannel
	}
}

// publishEvent 发布线索生命周期事件
// 尽力而为：背压下推迟，失败只记日志
func (uc *LeadUsecase) publishEvent(ctx context.Context, eventType, tenantID, leadID string, payload map[string]interface{}, hints domain.ProcessingHints) {
	if hints.DeferAnalytics {
		uc.logger.Debug("analytics deferred under backpressure",
			zap.String("event_type", eventType),
			zap.String("lead_id", leadID),
		)
		return
	}

	event := &domain.LeadEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		TenantID:  tenantID,
		LeadID:    leadID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish lead event",
			zap.String("event_type", eventType),
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
}
