package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("默认端口期望 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Resolver.CacheTTL != 5*time.Minute {
		t.Errorf("默认缓存时长期望 5m，实际 %s", cfg.Resolver.CacheTTL)
	}
	if cfg.Server.RateLimit.Window != time.Minute {
		t.Errorf("默认限流窗口期望 1m，实际 %s", cfg.Server.RateLimit.Window)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  port: 9000\nresolver:\n  max_occurrences: 10\n  export_occurrences: 2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DAYPART_SERVER_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("环境变量应覆盖文件，期望 9100，实际 %d", cfg.Server.Port)
	}
	if cfg.Resolver.MaxOccurrences != 10 || cfg.Resolver.ExportOccurrences != 2 {
		t.Errorf("文件配置未生效: %+v", cfg.Resolver)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Log:      LogConfig{Level: "info"},
			Resolver: ResolverConfig{MaxOccurrences: 366, ExportOccurrences: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"合法", func(c *Config) {}, ""},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"日志级别无效", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"展开上限为 0", func(c *Config) { c.Resolver.MaxOccurrences = 0 }, "resolver.max_occurrences"},
		{"导出次数超上限", func(c *Config) { c.Resolver.ExportOccurrences = 400 }, "resolver.export_occurrences"},
		{"缓存时长为负", func(c *Config) { c.Resolver.CacheTTL = -time.Second }, "resolver.cache_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("期望通过，实际: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("期望包含 %q 的错误，实际: %v", tt.wantErr, err)
			}
		})
	}
}
