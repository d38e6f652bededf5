package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port             int        `mapstructure:"port"`
	BaseURL          string     `mapstructure:"base_url"`
	BodyLimitBytes   int64      `mapstructure:"body_limit_bytes"`   // JSON 请求体上限
	UploadLimitBytes int64      `mapstructure:"upload_limit_bytes"` // multipart 上传上限（ICS 文件 5MB + 表单开销）
	CookieSecure     bool       `mapstructure:"cookie_secure"`      // Refresh Token Cookie 仅 HTTPS 发送
	CORS             CORSConfig `mapstructure:"cors"`
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
	LogLevel        string `mapstructure:"log_level"` // silent | error | warn | info
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
}

// FirebaseConfig Firebase 配置（Google 登录校验 + 分享快照镜像）
type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	DatabaseURL     string `mapstructure:"database_url"` // 为空时不镜像分享快照
	SharePath       string `mapstructure:"share_path"`
}

// ScheduleConfig 课表配置
type ScheduleConfig struct {
	ReferenceDate string `mapstructure:"reference_date"` // YYYY-MM-DD，所在周为单周
	Timezone      string `mapstructure:"timezone"`
}

// Reference 解析参考日期
func (c *ScheduleConfig) Reference() (time.Time, error) {
	return time.Parse("2006-01-02", c.ReferenceDate)
}

// Location 解析课表时区
func (c *ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ReminderConfig 截止提醒任务配置
type ReminderConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cron     string        `mapstructure:"cron"`
	Lookback time.Duration `mapstructure:"lookback"`
}

// RateLimitConfig 公开接口限流配置
type RateLimitConfig struct {
	PublicLimit  int           `mapstructure:"public_limit"`
	PublicWindow time.Duration `mapstructure:"public_window"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 2<<20)
	v.SetDefault("server.upload_limit_bytes", 6<<20)
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "flowo")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Bangkok")
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	v.SetDefault("firebase.share_path", "shares")

	v.SetDefault("schedule.reference_date", "2025-12-02")
	v.SetDefault("schedule.timezone", "Asia/Bangkok")

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.cron", "* * * * *")
	v.SetDefault("reminder.lookback", "5m")

	v.SetDefault("rate_limit.public_limit", 60)
	v.SetDefault("rate_limit.public_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("FLOWO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := c.Schedule.Reference(); err != nil {
		return fmt.Errorf("配置校验失败: schedule.reference_date 格式应为 YYYY-MM-DD: %w", err)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("配置校验失败: schedule.timezone 无效: %w", err)
	}
	if c.Reminder.Enabled && strings.TrimSpace(c.Reminder.Cron) == "" {
		return fmt.Errorf("配置校验失败: reminder.cron 不能为空")
	}
	return nil
}
