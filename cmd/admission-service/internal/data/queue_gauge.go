package data

import (
	"context"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/cache"
)

// pendingQueueKey 待发消息队列键
const pendingQueueKey = "outbound:pending"

// PendingQueueGauge 基于共享存储列表长度的队列深度信号
type PendingQueueGauge struct {
	store cache.Store
}

// NewPendingQueueGauge 创建队列深度信号
func NewPendingQueueGauge(store cache.Store) domain.QueueDepthGauge {
	return &PendingQueueGauge{store: store}
}

// Depth 读取当前待发队列深度
func (g *PendingQueueGauge) Depth(ctx context.Context) (int64, error) {
	return g.store.ListLen(ctx, pendingQueueKey)
}
