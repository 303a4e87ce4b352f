package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/blutech18/schoolmg-sub003/config"
)

// Client Redis 客户端封装
// 当前用于通知栏的按科目待审计数缓存；后续可扩展其他缓存场景
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 按科目待审请假条计数缓存 ──

const pendingCountPrefix = "excuse:pending-by-subject:"

// GetPendingCounts 读取指定审批字段的按科目待审计数缓存
// 缓存未命中返回 (nil, false, nil)
func (c *Client) GetPendingCounts(ctx context.Context, field string) (map[string]int64, bool, error) {
	raw, err := c.rdb.Get(ctx, pendingCountPrefix+field).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	counts := make(map[string]int64)
	if err := json.Unmarshal(raw, &counts); err != nil {
		// 缓存内容损坏时按未命中处理，由调用方回源重建
		c.logger.Warn("待审计数缓存解析失败", zap.String("field", field), zap.Error(err))
		return nil, false, nil
	}
	return counts, true, nil
}

// SetPendingCounts 写入按科目待审计数缓存
func (c *Client) SetPendingCounts(ctx context.Context, field string, counts map[string]int64, ttl time.Duration) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pendingCountPrefix+field, raw, ttl).Err()
}

// InvalidatePendingCounts 清除所有审批字段的待审计数缓存
// 审批动作或新提交会改变计数，写路径调用此方法保证下次读取回源
func (c *Client) InvalidatePendingCounts(ctx context.Context, fields ...string) error {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, pendingCountPrefix+f)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ── 滑动窗口限流 ──

// CheckRateLimit 基于有序集合的滑动窗口限流。
// 返回 true 表示放行。窗口内请求数达到 limit 后开始拒绝。
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
