package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"daypart-hub/config"
)

// Client Redis 客户端封装
// 用于有效配置缓存与写接口限流；调用方在连接失败时降级运行
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
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 有效配置缓存 ──
//
// 任一节点的写入都可能改变其全部后代的有效配置，因此不逐键失效，
// 而是维护一个全局代号：写入提交后递增代号，旧代号下的缓存自然过期。

const (
	configGenKey    = "daypart:config:gen"
	configKeyPrefix = "daypart:config:"
)

func configKey(gen int64, nodeID string) string {
	return configKeyPrefix + strconv.FormatInt(gen, 10) + ":" + nodeID
}

// ConfigGeneration 当前缓存代号，未初始化时为 0
func (c *Client) ConfigGeneration(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, configGenKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// BumpConfigGeneration 使所有已缓存的有效配置失效
func (c *Client) BumpConfigGeneration(ctx context.Context) error {
	return c.rdb.Incr(ctx, configGenKey).Err()
}

// GetEffectiveConfig 读取缓存；未命中时 ok=false
func (c *Client) GetEffectiveConfig(ctx context.Context, gen int64, nodeID string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, configKey(gen, nodeID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// SetEffectiveConfig 写入缓存，ttl<=0 时不写
func (c *Client) SetEffectiveConfig(ctx context.Context, gen int64, nodeID string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, configKey(gen, nodeID), data, ttl).Err()
}

// ── 限流 ──

// CheckRateLimit 滑动窗口计数：窗口内（含本次）请求数不超过 limit 时放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	var card *goredis.IntCmd

	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		c.logger.Warn("限流计数失败", zap.String("key", key), zap.Error(err))
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
