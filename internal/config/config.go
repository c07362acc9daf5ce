package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

// Config is built once at startup and passed by value or pointer to the
// components that need it. Nothing reads the environment after LoadConfig.
type Config struct {
	Addr           string          `yaml:"addr"`
	Env            string          `yaml:"env"`
	JWTSecret      string          `yaml:"jwt_secret"`
	APITimeout     time.Duration   `yaml:"timeout"`
	DatabasePath   string          `yaml:"database_path"`
	MigrateOnStart bool            `yaml:"migrate_on_start"`
	TokenDuration  time.Duration   `yaml:"token_duration"`
	ClientURL      string          `yaml:"client_url"`
	AdminEmail     string          `yaml:"admin_email"`
	LogLevel       string          `yaml:"log_level"`
	LogFormat      string          `yaml:"log_format"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	SMTP           SMTPConfig      `yaml:"smtp"`
	Notify         NotifyConfig    `yaml:"notify"`
}

type RateLimitConfig struct {
	// Enabled defaults to true in production when left unset.
	Enabled *bool         `yaml:"enabled"`
	Window  time.Duration `yaml:"window"`
	Max     int           `yaml:"max"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type NotifyConfig struct {
	Workers     int `yaml:"workers"`
	MaxAttempts int `yaml:"max_attempts"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 24 * time.Hour

	cfg := &Config{
		Addr:           getEnv("INTAKE_ADDR", ":5000"),
		Env:            getEnv("INTAKE_ENV", "production"),
		JWTSecret:      getEnv("INTAKE_JWT_SECRET", insecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("INTAKE_DATABASE_PATH", "intake.db"),
		MigrateOnStart: getEnvBool("INTAKE_MIGRATE_ON_START", true),
		TokenDuration:  getEnvDuration("INTAKE_TOKEN_DURATION", tokenDuration),
		ClientURL:      getEnv("INTAKE_CLIENT_URL", "*"),
		AdminEmail:     getEnv("INTAKE_ADMIN_EMAIL", ""),
		LogLevel:       getEnv("INTAKE_LOG_LEVEL", "info"),
		LogFormat:      getEnv("INTAKE_LOG_FORMAT", "json"),
		RateLimit: RateLimitConfig{
			Window: getEnvDuration("INTAKE_RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:    getEnvInt("INTAKE_RATE_LIMIT_MAX", 100),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("INTAKE_SMTP_HOST", ""),
			Port:     getEnvInt("INTAKE_SMTP_PORT", 587),
			Username: getEnv("INTAKE_SMTP_USERNAME", ""),
			Password: getEnv("INTAKE_SMTP_PASSWORD", ""),
			From:     getEnv("INTAKE_SMTP_FROM", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RateLimitEnabled resolves the tri-state rate_limit.enabled flag.
func (c *Config) RateLimitEnabled() bool {
	if c.RateLimit.Enabled != nil {
		return *c.RateLimit.Enabled
	}
	return c.IsProduction()
}

// Validate checks required values and fills the defaults that have no
// environment override.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.TokenDuration <= 0 {
		errs = append(errs, errors.New("token_duration must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	} else if c.JWTSecret == insecureJWTSecret && !c.IsDevelopment() {
		errs = append(errs, fmt.Errorf("jwt_secret uses the insecure default outside development (env=%q)", c.Env))
	}

	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.Max <= 0 {
		c.RateLimit.Max = 100
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.Notify.Workers <= 0 {
		c.Notify.Workers = 1
	}
	if c.Notify.MaxAttempts <= 0 {
		c.Notify.MaxAttempts = 3
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}

	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}

	return def
}
