package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveScript 带上限的原子自增脚本
// KEYS[1] 计数键；ARGV[1] 增量；ARGV[2] 上限；ARGV[3] 过期秒数
// 返回 {0, 当前值} 表示超限拒绝，{1, 新值} 表示预留成功
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
if current + amount > limit then
  return {0, current}
end
local new = redis.call('INCRBY', KEYS[1], amount)
if ttl > 0 and redis.call('TTL', KEYS[1]) < 0 then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return {1, new}
`)

// RedisStore Redis 存储实现
type RedisStore struct {
	client  *redis.Client
	options *Options
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(addr string, password string, db int, opts *Options) *RedisStore {
	if opts == nil {
		opts = &Options{
			DefaultTTL: 5 * time.Minute,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	return &RedisStore{
		client:  client,
		options: opts,
	}
}

// NewRedisStoreWithClient 复用已有客户端创建存储
func NewRedisStoreWithClient(client *redis.Client, opts *Options) *RedisStore {
	if opts == nil {
		opts = &Options{
			DefaultTTL: 5 * time.Minute,
		}
	}
	return &RedisStore{
		client:  client,
		options: opts,
	}
}

// makeKey 生成带前缀的键
func (s *RedisStore) makeKey(key string) string {
	if s.options.KeyPrefix != "" {
		return fmt.Sprintf("%s:%s", s.options.KeyPrefix, key)
	}
	return key
}

// Get 获取值，键不存在返回 ErrNotFound
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.makeKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

// Set 设置值
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.options.DefaultTTL
	}
	return s.client.Set(ctx, s.makeKey(key), value, ttl).Err()
}

// Delete 删除键
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.makeKey(key)).Err()
}

// Exists 检查键是否存在
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.client.Exists(ctx, s.makeKey(key)).Result()
	return result > 0, err
}

// SetNX 置键如不存在
func (s *RedisStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if ttl == 0 {
		ttl = s.options.DefaultTTL
	}
	return s.client.SetNX(ctx, s.makeKey(key), value, ttl).Result()
}

// IncrBy 自增
func (s *RedisStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return s.client.IncrBy(ctx, s.makeKey(key), amount).Result()
}

// DecrBy 自减
func (s *RedisStore) DecrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return s.client.DecrBy(ctx, s.makeKey(key), amount).Result()
}

// IncrWithCeiling 带上限检查的原子自增（Lua 脚本，跨并发调用线性一致）
func (s *RedisStore) IncrWithCeiling(ctx context.Context, key string, amount, limit int64, ttl time.Duration) (bool, int64, error) {
	ttlSeconds := int64(ttl / time.Second)
	result, err := reserveScript.Run(ctx, s.client, []string{s.makeKey(key)}, amount, limit, ttlSeconds).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected reserve script result: %v", result)
	}
	return result[0] == 1, result[1], nil
}

// ListLen 获取列表长度
func (s *RedisStore) ListLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, s.makeKey(key)).Result()
}

// Expire 设置过期时间
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, s.makeKey(key), ttl).Err()
}

// TTL 获取剩余过期时间
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, s.makeKey(key)).Result()
}

// Ping 检查连接
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
