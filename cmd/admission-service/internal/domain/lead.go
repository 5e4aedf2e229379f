package domain

import (
	"time"
)

// LeadChannel 外联渠道
type LeadChannel string

const (
	// ChannelWhatsApp WhatsApp Cloud API
	ChannelWhatsApp LeadChannel = "whatsapp"
	// ChannelVoice Twilio 语音外呼
	ChannelVoice LeadChannel = "voice"
	// ChannelEmail KlickTipp 邮件营销
	ChannelEmail LeadChannel = "email"
)

// LeadStatus 线索状态
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusEngaged   LeadStatus = "engaged"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Lead 线索记录（业务 CRUD 的最小子集，准入链路的被保护实体）
type Lead struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email"`
	Channel   LeadChannel `json:"channel"`
	Status    LeadStatus  `json:"status"`
	Source    string      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OutboundMessage 出站消息请求
type OutboundMessage struct {
	LeadID   string      `json:"lead_id"`
	TenantID string      `json:"tenant_id"`
	Channel  LeadChannel `json:"channel"`
	Body     string      `json:"body"`
	// Template 为真时只允许模板化内容（重度背压下强制）
	Template bool `json:"template"`
}

// LeadEvent 发布到 Kafka 的线索生命周期事件
type LeadEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	TenantID  string                 `json:"tenant_id"`
	LeadID    string                 `json:"lead_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
