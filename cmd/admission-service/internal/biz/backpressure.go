package biz

import (
	"context"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"
	"leadpulse/pkg/monitoring"

	"go.uber.org/zap"
)

// BackpressureConfig 背压阈值配置
// 阈值构成一个逐级收紧的降级阶梯，每一级的响应都比上一级更廉价
type BackpressureConfig struct {
	LightDepth    int64
	ModerateDepth int64
	SevereDepth   int64
	// GaugeTimeout 信号读取的超时上限
	GaugeTimeout time.Duration
}

// DefaultBackpressureConfig 默认配置
func DefaultBackpressureConfig() BackpressureConfig {
	return BackpressureConfig{
		LightDepth:    1000,
		ModerateDepth: 2000,
		SevereDepth:   5000,
		GaugeTimeout:  500 * time.Millisecond,
	}
}

// BackpressureController 背压控制器
// 模式是最新队列深度样本的纯函数，每次采样重新推导，不保存可变状态；
// 进程各自独立降载即可达成目标，无需跨进程协调
type BackpressureController struct {
	gauge  domain.QueueDepthGauge
	config BackpressureConfig
	logger *zap.Logger
}

// NewBackpressureController 创建背压控制器
func NewBackpressureController(gauge domain.QueueDepthGauge, config BackpressureConfig, logger *zap.Logger) *BackpressureController {
	if config.SevereDepth == 0 {
		config = DefaultBackpressureConfig()
	}
	return &BackpressureController{
		gauge:  gauge,
		config: config,
		logger: logger,
	}
}

// Sample 采样并推导当前背压模式
// 信号不可读时回退到 normal（fail open），控制器自身绝不能成为不可用源头
func (c *BackpressureController) Sample(ctx context.Context) domain.BackpressureMode {
	ctx, cancel := context.WithTimeout(ctx, c.config.GaugeTimeout)
	defer cancel()

	depth, err := c.gauge.Depth(ctx)
	if err != nil {
		c.logger.Warn("queue depth gauge unreadable, assuming normal load", zap.Error(err))
		return domain.ModeNormal
	}

	mode := c.ModeFor(depth)
	monitoring.QueueDepth.Set(float64(depth))
	monitoring.BackpressureMode.Set(float64(mode))
	return mode
}

// ModeFor 深度到模式的纯映射
func (c *BackpressureController) ModeFor(depth int64) domain.BackpressureMode {
	switch {
	case depth > c.config.SevereDepth:
		return domain.ModeSevere
	case depth > c.config.ModerateDepth:
		return domain.ModeModerate
	case depth > c.config.LightDepth:
		return domain.ModeLight
	default:
		return domain.ModeNormal
	}
}

// Hints 采样一次并生成处理降级提示
func (c *BackpressureController) Hints(ctx context.Context) domain.ProcessingHints {
	gaugeCtx, cancel := context.WithTimeout(ctx, c.config.GaugeTimeout)
	defer cancel()

	depth, err := c.gauge.Depth(gaugeCtx)
	if err != nil {
		c.logger.Warn("queue depth gauge unreadable, assuming normal load", zap.Error(err))
		depth = 0
	}

	mode := c.ModeFor(depth)
	monitoring.QueueDepth.Set(float64(depth))
	monitoring.BackpressureMode.Set(float64(mode))

	return domain.ProcessingHints{
		Mode:             mode,
		TemplatesOnly:    mode.UseTemplatesOnly(),
		PersuasionOff:    mode.DisablePersuasion(),
		DeferAnalytics:   mode.DeferAnalytics(),
		QueueDepthSample: depth,
	}
}
