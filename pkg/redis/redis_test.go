package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"daypart-hub/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(&config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	if err != nil {
		t.Fatalf("连接 miniredis 失败: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestEffectiveConfigCache_GenerationInvalidates(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	gen, err := c.ConfigGeneration(ctx)
	if err != nil || gen != 0 {
		t.Fatalf("初始代号应为 0，实际 %d, err=%v", gen, err)
	}

	if err := c.SetEffectiveConfig(ctx, gen, "store-1", []byte(`{"node_id":"store-1"}`), time.Minute); err != nil {
		t.Fatalf("写缓存失败: %v", err)
	}
	data, ok, err := c.GetEffectiveConfig(ctx, gen, "store-1")
	if err != nil || !ok {
		t.Fatalf("应命中缓存: ok=%v err=%v", ok, err)
	}
	if string(data) != `{"node_id":"store-1"}` {
		t.Errorf("缓存内容不符: %s", data)
	}

	if err := c.BumpConfigGeneration(ctx); err != nil {
		t.Fatalf("递增代号失败: %v", err)
	}
	next, _ := c.ConfigGeneration(ctx)
	if next != 1 {
		t.Fatalf("期望代号 1，实际 %d", next)
	}
	if _, ok, _ := c.GetEffectiveConfig(ctx, next, "store-1"); ok {
		t.Error("代号递增后不应命中旧缓存")
	}
}

func TestEffectiveConfigCache_ZeroTTLSkipsWrite(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.SetEffectiveConfig(ctx, 0, "store-1", []byte("x"), 0); err != nil {
		t.Fatalf("ttl=0 不应报错: %v", err)
	}
	if _, ok, _ := c.GetEffectiveConfig(ctx, 0, "store-1"); ok {
		t.Error("ttl=0 时不应写入缓存")
	}
}

func TestEffectiveConfigCache_Expires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_ = c.SetEffectiveConfig(ctx, 0, "store-1", []byte("x"), time.Minute)
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.GetEffectiveConfig(ctx, 0, "store-1"); ok {
		t.Error("缓存过期后不应命中")
	}
}

func TestCheckRateLimit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
		if err != nil {
			t.Fatalf("限流计数失败: %v", err)
		}
		if !allowed {
			t.Fatalf("第 %d 次请求应放行", i+1)
		}
	}

	allowed, err := c.CheckRateLimit(ctx, "rate_limit:test", 3, time.Minute)
	if err != nil {
		t.Fatalf("限流计数失败: %v", err)
	}
	if allowed {
		t.Error("超过限额的请求应被拒绝")
	}

	allowed, _ = c.CheckRateLimit(ctx, "rate_limit:other", 3, time.Minute)
	if !allowed {
		t.Error("不同 key 互不影响")
	}
}
