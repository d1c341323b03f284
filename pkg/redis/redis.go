// Package redis 封装会话吊销与助手限流所需的少量 Redis 操作。
// 课表数据不进 Redis，Redis 不可用时服务仍可运行（黑名单与限流关闭）。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reinieltalplacido/classalign/config"
)

const (
	keyPrefix       = "classalign:"
	blacklistPrefix = keyPrefix + "token:blacklist:"
	dialTimeout     = 5 * time.Second
)

// slidingWindow 原子地清理过期记录、判断并登记本次请求。
// 被拒绝的请求不计入窗口，避免持续重试的客户端永远解不开限流。
// KEYS[1]=限流键 ARGV[1]=当前毫秒 ARGV[2]=窗口毫秒 ARGV[3]=上限 ARGV[4]=成员
var slidingWindow = goredis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, tonumber(ARGV[1]) - tonumber(ARGV[2]))
local n = redis.call('ZCARD', KEYS[1])
if n >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Client Redis 客户端
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 建立连接并 Ping；失败时由调用方决定是否降级
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败 (%s): %w", cfg.Addr, err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 会话吊销 ──

// BlacklistToken 吊销 JWT ID 直到其自然过期；已过期的 Token 直接忽略
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, time.Now().Unix(), ttl).Err()
}

func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	return n > 0, err
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	ok, err := slidingWindow.Run(ctx, c.rdb, []string{key},
		now, window.Milliseconds(), limit, uuid.NewString(),
	).Int()
	if err != nil {
		c.logger.Warn("限流脚本执行失败", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return ok == 1, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
