package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能没有系统时区库

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BaseURL   string     `mapstructure:"base_url"`
	BodyLimit int64      `mapstructure:"body_limit"` // 字节
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 分钟
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	Cookie          CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig Cookie 安全配置
type CookieConfig struct {
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig 语言模型配置
// APIKey 为空时助手仅使用规则解析
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
}

// Enabled 是否配置了可用的语言模型
func (c *LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// AssistantConfig 助手模块配置
type AssistantConfig struct {
	RateLimit     int           `mapstructure:"rate_limit"`
	RateWindow    time.Duration `mapstructure:"rate_window"`
	RegexFallback bool          `mapstructure:"regex_fallback"`
}

// CalendarConfig 日历导入导出配置
type CalendarConfig struct {
	Timezone string `mapstructure:"timezone"` // IANA 时区名，课程时间按该时区的墙上时间解释
}

// Location 解析时区；调用前应已通过 Validate
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// defaults 未在配置文件与环境变量中出现的键使用这里的值
var defaults = map[string]any{
	"server.port":               8080,
	"server.base_url":           "http://localhost:8080",
	"server.body_limit":         5 << 20,
	"server.cors.allow_origins": []string{"http://localhost:3000"},

	"db.host":               "localhost",
	"db.port":               5432,
	"db.name":               "classalign",
	"db.user":               "postgres",
	"db.password":           "",
	"db.sslmode":            "disable",
	"db.timezone":           "UTC",
	"db.max_open_conns":     25,
	"db.max_idle_conns":     10,
	"db.conn_max_lifetime":  60,
	"db.conn_max_idle_time": 30,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"auth.jwt_secret":        "",
	"auth.access_token_ttl":  "15m",
	"auth.refresh_token_ttl": "168h",
	"auth.cookie.secure":     false,
	"auth.cookie.same_site":  "Lax",
	"auth.cookie.domain":     "",

	"log.level":  "info",
	"log.format": "json",

	"llm.api_key":     "",
	"llm.model":       "gemini-1.5-flash",
	"llm.timeout":     "30s",
	"llm.temperature": 0.2,

	"assistant.rate_limit":     20,
	"assistant.rate_window":    "1m",
	"assistant.regex_fallback": true,

	"calendar.timezone": "UTC",
}

// Load 读取配置，优先级：环境变量（CLASSALIGN_ 前缀）> .env > 配置文件 > defaults。
// path 为空时依次在 ./config 与 . 下查找 config.yaml，找不到文件不算错误。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 所有键都已有默认值，AutomaticEnv 可以覆盖任意嵌套键
	v.SetEnvPrefix("CLASSALIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键配置项，一次返回全部问题
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Auth.JWTSecret != "", "auth.jwt_secret 不能为空")
	check(c.Auth.JWTSecret == "" || len(c.Auth.JWTSecret) >= 16, "auth.jwt_secret 长度不能少于 16 字符")
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port 必须在 1-65535 之间")
	check(c.Assistant.RateLimit >= 0, "assistant.rate_limit 不能为负数")
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone 无效: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("配置校验失败: %w", errors.Join(errs...))
}
