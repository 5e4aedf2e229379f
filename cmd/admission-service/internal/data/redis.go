package data

import (
	"time"

	"leadpulse/pkg/cache"
)

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewSharedStore 创建共享键值存储
// 重放键、配额计数与队列深度信号都由它承载；原子性依赖存储自身原语，
// 进程内锁无法替代（服务是水平扩展的）
func NewSharedStore(config *RedisConfig) *cache.RedisStore {
	return cache.NewRedisStore(config.Addr, config.Password, config.DB, &cache.Options{
		DefaultTTL:   15 * time.Minute,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})
}
