package data

import (
	"context"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/events"
)

// LeadEventPublisher 将领域事件适配到 Kafka 发布器
type LeadEventPublisher struct {
	publisher events.Publisher
}

// NewLeadEventPublisher 创建线索事件发布器
func NewLeadEventPublisher(publisher events.Publisher) domain.EventPublisher {
	return &LeadEventPublisher{publisher: publisher}
}

// Publish 发布线索生命周期事件
func (p *LeadEventPublisher) Publish(ctx context.Context, event *domain.LeadEvent) error {
	return p.publisher.Publish(ctx, &events.Event{
		EventID:     event.EventID,
		EventType:   event.EventType,
		TenantID:    event.TenantID,
		AggregateID: event.LeadID,
		Payload:     event.Payload,
		Timestamp:   event.Timestamp,
	})
}
