package biz

import (
	"context"
	"sync"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditConfig 审计记录器配置
type AuditConfig struct {
	// QueueSize 本地缓冲队列容量
	QueueSize int
	// WriteTimeout 单条记录的持久化超时
	WriteTimeout time.Duration
}

// DefaultAuditConfig 默认配置
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		QueueSize:    1024,
		WriteTimeout: 5 * time.Second,
	}
}

// AuditRecorder 审计记录器
// 写入走有界本地队列异步落库，Record 对调用方永不报错：
// 审计是可观测性手段，不是它所描述操作的事务参与者。
// 队列满或落库失败只记日志并丢弃
type AuditRecorder struct {
	repo   domain.AuditRepository
	config AuditConfig
	logger *zap.Logger

	queue  chan *domain.AuditRecord
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewAuditRecorder 创建审计记录器并启动后台落库协程
func NewAuditRecorder(repo domain.AuditRepository, config AuditConfig, logger *zap.Logger) *AuditRecorder {
	if config.QueueSize == 0 {
		config = DefaultAuditConfig()
	}

	r := &AuditRecorder{
		repo:   repo,
		config: config,
		logger: logger,
		queue:  make(chan *domain.AuditRecord, config.QueueSize),
	}

	r.wg.Add(1)
	go r.drain()

	return r
}

// Record 写入一条审计记录
// 只做入队，绝不阻塞调用方，也不向调用方传播任何失败；
// 请求上下文已取消也不影响入队，中止结局同样要留下记录
func (r *AuditRecorder) Record(entry *domain.AuditRecord) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("audit recorder closed, dropping record",
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
		)
		monitoring.AuditDropped.WithLabelValues("closed").Inc()
		return
	}

	select {
	case r.queue <- entry:
		monitoring.AuditQueueDepth.Set(float64(len(r.queue)))
	default:
		r.logger.Warn("audit queue full, dropping record",
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
		)
		monitoring.AuditDropped.WithLabelValues("overflow").Inc()
	}
	r.mu.Unlock()
}

// drain 后台落库循环
func (r *AuditRecorder) drain() {
	defer r.wg.Done()

	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		err := r.repo.Append(ctx, entry)
		cancel()

		if err != nil {
			// 落库失败吞掉，只留日志与指标
			r.logger.Error("audit write failed, record discarded",
				zap.String("entity_id", entry.EntityID),
				zap.String("action", entry.Action),
				zap.Error(err),
			)
			monitoring.AuditDropped.WithLabelValues("store_error").Inc()
		}
		monitoring.AuditQueueDepth.Set(float64(len(r.queue)))
	}
}

// Close 停止接收新记录并在截止时间内排空队列
func (r *AuditRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trail 按实体查询审计轨迹
func (r *AuditRecorder) Trail(ctx context.Context, entityID string, limit int) ([]*domain.AuditRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return r.repo.Trail(ctx, entityID, limit)
}

// Recent 查询最近的审计记录
func (r *AuditRecorder) Recent(ctx context.Context, limit int, action string) ([]*domain.AuditRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return r.repo.Recent(ctx, limit, action)
}
