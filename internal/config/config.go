package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config/config.yaml"
	PathEnv     = "HOMESYNC_CONFIG"

	EnvProduction = "production"

	minProductionSecret = 32
)

type ServerConfig struct {
	Port         int    `yaml:"port" env:"PORT"`
	Env          string `yaml:"env" env:"APP_ENV"`
	PublicDir    string `yaml:"public_dir" env:"PUBLIC_DIR"`
	CookieSecure bool   `yaml:"cookie_secure" env:"COOKIE_SECURE"`
}

type DatabaseConfig struct {
	DSN string `yaml:"url" env:"DATABASE_URL"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"` // 0: tokens never expire
	OTPTTL     time.Duration `yaml:"otp_ttl" env:"OTP_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

type EmailConfig struct {
	SMTPHost        string        `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort        int           `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser        string        `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword    string        `yaml:"smtp_password" env:"SMTP_PASS"`
	FromEmail       string        `yaml:"from_email" env:"SMTP_FROM"`
	Template        string        `yaml:"template" env:"EMAIL_TEMPLATE"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" env:"DELIVERY_TIMEOUT"`
}

type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID int64  `yaml:"alert_chat_id" env:"TELEGRAM_ALERT_CHAT_ID"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Log       LogConfig       `yaml:"log"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 3000, Env: "development", PublicDir: "public"},
		Auth:   AuthConfig{OTPTTL: 10 * time.Minute, BcryptCost: 10},
		Email:  EmailConfig{SMTPPort: 587, DeliveryTimeout: 10 * time.Second},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the file named by HOMESYNC_CONFIG (or config/config.yaml).
func LoadConfig() (*Config, error) {
	path := os.Getenv(PathEnv)
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// Load applies, in order: defaults, the YAML file at path (a missing file is fine),
// environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	secret := strings.TrimSpace(c.Auth.JWTSecret)
	switch {
	case secret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case c.IsProduction() && len(secret) < minProductionSecret:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecret))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.Auth.TokenTTL < 0 {
		errs = append(errs, errors.New("TOKEN_TTL must not be negative"))
	}
	if c.Email.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("DELIVERY_TIMEOUT must be positive"))
	}
	if c.IsProduction() && c.Email.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required in production"))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.AlertChatID == 0) {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_ALERT_CHAT_ID must be set together"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, EnvProduction)
}

// CaptureCodes reports whether verification codes are kept in memory instead of mailed.
func (c *Config) CaptureCodes() bool {
	return !c.IsProduction() && c.Email.SMTPHost == ""
}
