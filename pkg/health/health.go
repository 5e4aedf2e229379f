package health

import (
	"context"
	"sync"
	"time"
)

// Status 健康状态
type Status string

const (
	// StatusHealthy 健康
	StatusHealthy Status = "healthy"
	// StatusUnhealthy 不健康
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult 检查结果
type CheckResult struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Checker 单项依赖检查
type Checker struct {
	Name string
	Ping func(context.Context) error
}

// Check 执行检查
func (c Checker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := c.Ping(ctx)
	duration := time.Since(start)

	result := CheckResult{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Duration:  duration,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// HealthChecker 依赖健康检查管理器
// 准入服务的就绪性取决于数据库与共享存储：两者任一不可达时
// 不接收新流量，让上游把请求路由到健康实例
type HealthChecker struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewHealthChecker 创建健康检查管理器
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// Register 注册检查项
func (h *HealthChecker) Register(name string, ping func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, Checker{Name: name, Ping: ping})
}

// Check 并行执行所有检查
func (h *HealthChecker) Check(ctx context.Context) map[string]CheckResult {
	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			result := c.Check(ctx)
			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// IsReady 所有检查项都健康才算就绪
func (h *HealthChecker) IsReady(ctx context.Context) (bool, map[string]CheckResult) {
	results := h.Check(ctx)
	for _, result := range results {
		if result.Status != StatusHealthy {
			return false, results
		}
	}
	return true, results
}
