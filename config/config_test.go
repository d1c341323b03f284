package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Auth:      AuthConfig{JWTSecret: "0123456789abcdef"},
		Assistant: AssistantConfig{RateLimit: 20},
		Calendar:  CalendarConfig{Timezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, "jwt_secret"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative rate limit", func(c *Config) { c.Assistant.RateLimit = -1 }, "rate_limit"},
		{"unknown timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }, "calendar.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("期望通过校验，实际 %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("期望错误包含 %q，实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
auth:
  jwt_secret: "file-secret-0123456789"
assistant:
  rate_limit: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASSALIGN_SERVER_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("环境变量应覆盖配置文件，期望 9191，实际 %d", cfg.Server.Port)
	}
	if cfg.Assistant.RateLimit != 5 {
		t.Errorf("期望 rate_limit=5，实际 %d", cfg.Assistant.RateLimit)
	}
	// 默认值
	if cfg.Auth.AccessTokenTTL != 15*time.Minute || cfg.Assistant.RateWindow != time.Minute {
		t.Errorf("默认 TTL/窗口不符: %v / %v", cfg.Auth.AccessTokenTTL, cfg.Assistant.RateWindow)
	}
	if cfg.Calendar.Location() != time.UTC {
		t.Errorf("默认时区应为 UTC，实际 %v", cfg.Calendar.Location())
	}
	if cfg.LLM.Enabled() {
		t.Error("未配置 api_key 时不应启用语言模型")
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Calendar.Timezone = "Nowhere/City"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("期望校验失败")
	}
	for _, want := range []string{"server.port", "calendar.timezone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("错误信息应包含 %q: %v", want, err)
		}
	}
}

// 配置文件中没有出现的嵌套键也能由环境变量提供
func TestLoad_EnvOnlySecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASSALIGN_AUTH_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("CLASSALIGN_CALENDAR_TIMEZONE", "Asia/Manila")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret-0123456789" {
		t.Errorf("jwt_secret 应来自环境变量，实际 %q", cfg.Auth.JWTSecret)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level 期望 debug，实际 %s", cfg.Log.Level)
	}
	if cfg.Calendar.Location().String() != "Asia/Manila" {
		t.Errorf("时区期望 Asia/Manila，实际 %s", cfg.Calendar.Location())
	}
}
