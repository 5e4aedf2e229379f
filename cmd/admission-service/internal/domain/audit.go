package domain

import (
	"time"
)

// ActorType 操作者类型
type ActorType string

const (
	// ActorHuman 后台人工操作
	ActorHuman ActorType = "human"
	// ActorSystem 系统自动操作
	ActorSystem ActorType = "system"
	// ActorWebhook 外部 Webhook 触发
	ActorWebhook ActorType = "webhook"
)

// 审计动作类型
const (
	ActionLeadIngested    = "lead.ingested"
	ActionLeadRejected    = "lead.rejected"
	ActionLeadUpdated     = "lead.updated"
	ActionMessageRelayed  = "message.relayed"
	ActionMessageFailed   = "message.failed"
	ActionOperationFailed = "operation.failed"
)

// ChangeSet 操作前后的结构化快照
type ChangeSet struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// AuditRecord 审计记录
// 一经写入不可修改、不可删除（存储层通过触发器强制约束）
type AuditRecord struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Changes   ChangeSet `json:"changes"`
	ActorType ActorType `json:"actor_type"`
	SourceIP  string    `json:"source_ip"`
	CreatedAt time.Time `json:"created_at"`
}
