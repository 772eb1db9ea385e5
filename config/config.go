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
	Mail      MailConfig      `mapstructure:"mail"`
	Log       LogConfig       `mapstructure:"log"`
	Meal      MealConfig      `mapstructure:"meal"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Report    ReportConfig    `mapstructure:"report"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver 为 postgres（生产）或 sqlite（本地开发 / 测试）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
// 会话时区固定为 UTC：日期以组织本地日历日字符串入库，时间戳统一在存储边界转换
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
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
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// MailConfig SMTP 邮件配置（用餐提醒）
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled SMTP 是否已配置
func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.From != ""
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MealConfig 用餐日历配置
// 所有时刻均为组织本地时间（Timezone），格式 HH:MM
type MealConfig struct {
	Timezone             string        `mapstructure:"timezone"`
	LunchTime            string        `mapstructure:"lunch_time"`
	LunchCutoff          string        `mapstructure:"lunch_cutoff"`
	DinnerTime           string        `mapstructure:"dinner_time"`
	DinnerCutoff         string        `mapstructure:"dinner_cutoff"`
	RegistrationLeadTime time.Duration `mapstructure:"registration_lead_time"`
	MaxSlotDays          int           `mapstructure:"max_slot_days"`
}

// SchedulerConfig 用餐提醒调度配置
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Spec         string        `mapstructure:"spec"`
	Lead         time.Duration `mapstructure:"lead"`
	Window       time.Duration `mapstructure:"window"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
}

// ReportConfig 报表配置
type ReportConfig struct {
	UnitPrice int64  `mapstructure:"unit_price"` // 每餐单价（最小货币单位）
	Currency  string `mapstructure:"currency"`
}

// TracingConfig OpenTelemetry 配置，OTLPEndpoint 为空时不导出
type TracingConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// RateLimitConfig 限流配置（依赖 Redis，不可用时放行）
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "eating_management")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "eating_management.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "eating-management")
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("mail.smtp_port", 587)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("meal.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("meal.lunch_time", "11:30")
	v.SetDefault("meal.lunch_cutoff", "08:30")
	v.SetDefault("meal.dinner_time", "18:00")
	v.SetDefault("meal.dinner_cutoff", "14:30")
	v.SetDefault("meal.registration_lead_time", "30m")
	v.SetDefault("meal.max_slot_days", 31)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "*/5 * * * *")
	v.SetDefault("scheduler.lead", "30m")
	v.SetDefault("scheduler.window", "1m")
	v.SetDefault("scheduler.query_timeout", "5s")
	v.SetDefault("scheduler.dedup_ttl", "24h")

	v.SetDefault("report.unit_price", 30000)
	v.SetDefault("report.currency", "VND")

	v.SetDefault("tracing.service_name", "eating-management")
	v.SetDefault("tracing.otlp_endpoint", "")

	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")

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
	v.SetEnvPrefix("MEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres 或 sqlite")
	}
	if _, err := time.LoadLocation(c.Meal.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: meal.timezone 无效: %w", err)
	}
	for key, val := range map[string]string{
		"meal.lunch_time":    c.Meal.LunchTime,
		"meal.lunch_cutoff":  c.Meal.LunchCutoff,
		"meal.dinner_time":   c.Meal.DinnerTime,
		"meal.dinner_cutoff": c.Meal.DinnerCutoff,
	} {
		if _, err := time.Parse("15:04", val); err != nil {
			return fmt.Errorf("配置校验失败: %s 格式应为 HH:MM", key)
		}
	}
	if c.Meal.RegistrationLeadTime < 0 {
		return fmt.Errorf("配置校验失败: meal.registration_lead_time 不能为负")
	}
	if c.Report.UnitPrice < 0 {
		return fmt.Errorf("配置校验失败: report.unit_price 不能为负")
	}
	if c.Scheduler.Window <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.window 必须大于 0")
	}
	return nil
}
