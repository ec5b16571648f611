package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sportperformance/academy-api/internal/database"
)

// Config is the full runtime configuration, loadable from a YAML file with
// ACADEMY_* environment overrides.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Email    EmailConfig     `mapstructure:"email"`
	Logging  LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig holds the optional Redis connection used for distributed rate
// limiting. When disabled the limiter falls back to an in-process store.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig groups credential lifecycle settings.
type AuthConfig struct {
	JWT       JWTConfig       `mapstructure:"jwt"`
	Otp       OtpConfig       `mapstructure:"otp"`
	Invite    InviteConfig    `mapstructure:"invite"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// OtpConfig tunes the OTP challenge lifecycle.
type OtpConfig struct {
	CodeLength  int           `mapstructure:"code_length"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// InviteConfig tunes invite issuance.
type InviteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RateLimitConfig tunes edge throttling on the credential endpoints.
type RateLimitConfig struct {
	Limit  int64         `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the optional config file at path (or the
// working directory when path is empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/academy.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Registered empty so the environment override is visible to Unmarshal.
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "academy-api")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("auth.otp.code_length", 6)
	v.SetDefault("auth.otp.ttl", "10m")
	v.SetDefault("auth.otp.max_attempts", 5)

	v.SetDefault("auth.invite.base_url", "http://localhost:8080/invites")

	v.SetDefault("auth.rate_limit.limit", 10)
	v.SetDefault("auth.rate_limit.window", "1m")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.use_tls", true)

	v.SetDefault("logging.level", "info")
}

// Validate rejects configurations the server cannot safely start with.
func (c *Config) Validate() error {
	if c.Auth.JWT.Secret == "" {
		return errors.New("config: auth.jwt.secret is required")
	}
	if c.Auth.Otp.MaxAttempts <= 0 {
		return errors.New("config: auth.otp.max_attempts must be positive")
	}
	if c.Auth.Otp.TTL <= 0 {
		return errors.New("config: auth.otp.ttl must be positive")
	}
	return nil
}
