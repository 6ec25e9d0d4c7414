package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvResendAPIKey = "RESEND_API_KEY"
	EnvRedisAddr    = "REDIS_ADDR"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// Second-factor strategy names accepted in the auth config.
const (
	StrategyTOTP      = "totp"
	StrategyEmailCode = "email-code"
)

// AuthConfig enumerates lockout and token lifecycle settings.
type AuthConfig struct {
	MaxLoginAttempts   int           `yaml:"max-login-attempts"`
	LockoutDuration    time.Duration `yaml:"lockout-duration"`
	ResetTokenTTL      time.Duration `yaml:"reset-token-ttl"`
	TwoFactorTokenTTL  time.Duration `yaml:"two-factor-token-ttl"`
	TwoFactorCodeLen   int           `yaml:"two-factor-code-length"`
	SecondFactor       string        `yaml:"second-factor"`
	LoginRatePerMinute int           `yaml:"login-rate-per-minute"`
}

// DefaultAuthConfig returns the built-in lockout and token defaults.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxLoginAttempts:   5,
		LockoutDuration:    15 * time.Minute,
		ResetTokenTTL:      time.Hour,
		TwoFactorTokenTTL:  5 * time.Minute,
		TwoFactorCodeLen:   6,
		SecondFactor:       StrategyEmailCode,
		LoginRatePerMinute: 10,
	}
}

// LoadAuthConfig loads auth settings from the YAML config file.
func LoadAuthConfig(configPath string) (AuthConfig, error) {
	// fileConfig maps the YAML fields needed for auth settings.
	type fileConfig struct {
		Auth AuthConfig `yaml:"auth"`
	}

	result := DefaultAuthConfig()

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			merged := cfg.Auth
			if merged.MaxLoginAttempts <= 0 {
				merged.MaxLoginAttempts = result.MaxLoginAttempts
			}
			if merged.LockoutDuration <= 0 {
				merged.LockoutDuration = result.LockoutDuration
			}
			if merged.ResetTokenTTL <= 0 {
				merged.ResetTokenTTL = result.ResetTokenTTL
			}
			if merged.TwoFactorTokenTTL <= 0 {
				merged.TwoFactorTokenTTL = result.TwoFactorTokenTTL
			}
			if merged.TwoFactorCodeLen <= 0 {
				merged.TwoFactorCodeLen = result.TwoFactorCodeLen
			}
			if merged.LoginRatePerMinute <= 0 {
				merged.LoginRatePerMinute = result.LoginRatePerMinute
			}
			merged.SecondFactor = normalizeStrategy(merged.SecondFactor, result.SecondFactor)
			result = merged
		}
	}
	return result, nil
}

// normalizeStrategy validates a strategy name, falling back when unknown.
func normalizeStrategy(raw, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StrategyTOTP:
		return StrategyTOTP
	case StrategyEmailCode:
		return StrategyEmailCode
	default:
		return fallback
	}
}

// MailConfig holds outbound mail settings.
type MailConfig struct {
	APIKey string `yaml:"api-key"`
	From   string `yaml:"from"`
	AppURL string `yaml:"app-url"`
}

// LoadMailConfig loads mail settings from the YAML config file.
func LoadMailConfig(configPath string) (MailConfig, error) {
	// fileConfig maps the YAML fields needed for mail settings.
	type fileConfig struct {
		Mail MailConfig `yaml:"mail"`
	}

	var result MailConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Mail
		}
	}

	if key := strings.TrimSpace(os.Getenv(EnvResendAPIKey)); key != "" {
		result.APIKey = key
	}
	return result, nil
}

// SuggestConfig holds settings for the form-suggestion collaborator.
type SuggestConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api-key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoadSuggestConfig loads suggestion service settings from the YAML config file.
func LoadSuggestConfig(configPath string) (SuggestConfig, error) {
	// fileConfig maps the YAML fields needed for suggestion settings.
	type fileConfig struct {
		Suggest SuggestConfig `yaml:"suggest"`
	}

	result := SuggestConfig{Timeout: 30 * time.Second}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if cfg.Suggest.Timeout <= 0 {
				cfg.Suggest.Timeout = result.Timeout
			}
			result = cfg.Suggest
		}
	}
	return result, nil
}

// LoadRedisAddr reads the optional Redis address for the login limiter.
func LoadRedisAddr(configPath string) string {
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		return addr
	}

	// fileConfig maps the YAML fields needed for the Redis address.
	type fileConfig struct {
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return ""
	}
	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return ""
	}
	return strings.TrimSpace(cfg.Redis.Addr)
}
