package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 键不存在
// 调用方据此区分"键还没写过"与存储故障
var ErrNotFound = errors.New("cache: key not found")

// Store 共享键值存储接口
// 准入链路依赖的原子原语：SetNX（置键如不存在）与 IncrWithCeiling（带上限的原子自增）
type Store interface {
	// Get 获取值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置值
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete 删除键
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// SetNX 置键如不存在，返回是否写入成功
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// IncrBy 自增
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)

	// DecrBy 自减
	DecrBy(ctx context.Context, key string, amount int64) (int64, error)

	// IncrWithCeiling 带上限检查的原子自增
	// 当前值加 amount 超过 limit 时不修改并返回 allowed=false 与当前值；
	// 否则自增并在键无过期时间时设置 ttl，返回 allowed=true 与自增后的值
	IncrWithCeiling(ctx context.Context, key string, amount, limit int64, ttl time.Duration) (allowed bool, current int64, err error)

	// ListLen 获取列表长度
	ListLen(ctx context.Context, key string) (int64, error)

	// Expire 设置过期时间
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL 获取剩余过期时间
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Close 关闭连接
	Close() error
}

// Options 存储选项
type Options struct {
	// 默认过期时间
	DefaultTTL time.Duration

	// 键前缀
	KeyPrefix string

	// 连接池参数，零值沿用客户端默认
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
