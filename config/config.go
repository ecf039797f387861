package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Session    SessionConfig    `mapstructure:"session"`
	QR         QRConfig         `mapstructure:"qr"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	BaseURL  string `mapstructure:"base_url"` // 二维码链接前缀
	Timezone string `mapstructure:"timezone"` // 每日密钥与签到日期的参考时区
}

// Location 解析参考时区
func (c *ServerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// AttendanceConfig 签到业务配置
type AttendanceConfig struct {
	Salt          string `mapstructure:"salt"`           // 每日密钥 HMAC 盐值
	PresentCutoff string `mapstructure:"present_cutoff"` // HH:MM，含边界
	LateCutoff    string `mapstructure:"late_cutoff"`    // HH:MM，含边界
	RosterFile    string `mapstructure:"roster_file"`
	LedgerFile    string `mapstructure:"ledger_file"`
}

// LedgerConfig 签到流水存储配置
type LedgerConfig struct {
	Driver string `mapstructure:"driver"` // csv | postgres
}

// DatabaseConfig PostgreSQL 数据库配置（仅 ledger.driver=postgres 时使用）
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	Timezone     string `mapstructure:"timezone"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
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

// AdminConfig 管理员认证配置
type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"` // bcrypt
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	LoginLimit   int           `mapstructure:"login_limit"`  // 窗口内允许的登录尝试次数
	LoginWindow  time.Duration `mapstructure:"login_window"` // 登录限流窗口
	Cookie       CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig Cookie 安全配置
type CookieConfig struct {
	Secure bool   `mapstructure:"secure"`
	Domain string `mapstructure:"domain"`
}

// SessionConfig Flash 消息所用的 Cookie 会话配置
type SessionConfig struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

// QRConfig 每日二维码配置
type QRConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Size      int    `mapstructure:"size"`
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
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.timezone", "Asia/Kolkata")

	v.SetDefault("attendance.salt", "")
	v.SetDefault("attendance.present_cutoff", "09:45")
	v.SetDefault("attendance.late_cutoff", "10:30")
	v.SetDefault("attendance.roster_file", "students.csv")
	v.SetDefault("attendance.ledger_file", "attendance.csv")

	v.SetDefault("ledger.driver", "csv")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "attendance")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.session_ttl", "8h")
	v.SetDefault("admin.login_limit", 5)
	v.SetDefault("admin.login_window", "15m")
	v.SetDefault("admin.cookie.secure", false)
	v.SetDefault("admin.cookie.domain", "")

	v.SetDefault("session.name", "attendance_session")
	v.SetDefault("session.secret", "")

	v.SetDefault("qr.output_dir", ".")
	v.SetDefault("qr.size", 256)

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
	v.SetEnvPrefix("ATTEND")
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
	if len(c.Attendance.Salt) < 16 {
		return fmt.Errorf("配置校验失败: attendance.salt 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := c.Server.Location(); err != nil {
		return fmt.Errorf("配置校验失败: server.timezone 无效: %w", err)
	}

	present, err := time.Parse("15:04", c.Attendance.PresentCutoff)
	if err != nil {
		return fmt.Errorf("配置校验失败: attendance.present_cutoff 格式应为 HH:MM")
	}
	late, err := time.Parse("15:04", c.Attendance.LateCutoff)
	if err != nil {
		return fmt.Errorf("配置校验失败: attendance.late_cutoff 格式应为 HH:MM")
	}
	if late.Before(present) {
		return fmt.Errorf("配置校验失败: attendance.late_cutoff 不能早于 present_cutoff")
	}

	switch c.Ledger.Driver {
	case "csv", "postgres":
	default:
		return fmt.Errorf("配置校验失败: ledger.driver 仅支持 csv 或 postgres")
	}

	if c.Admin.Username == "" || c.Admin.PasswordHash == "" {
		return fmt.Errorf("配置校验失败: admin.username 与 admin.password_hash 不能为空")
	}
	if len(c.Admin.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: admin.jwt_secret 长度不能少于 16 字符")
	}
	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("配置校验失败: session.secret 长度不能少于 16 字符")
	}
	return nil
}
