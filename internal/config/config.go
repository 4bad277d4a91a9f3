package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail backends.
const (
	MailBackendLog      = "log"
	MailBackendSendGrid = "sendgrid"
	MailBackendAMQP     = "amqp"
)

const defaultSecretKey = "change-me-in-production"

type Config struct {
	// HTTP server
	Port          string
	BaseURL       string
	SecureCookie  bool
	AuthRateLimit int // requests per minute per client IP on login/signup/reset posts
	TrustProxy    bool // take the client IP from X-Forwarded-For / X-Real-IP

	// Storage
	DBPath string

	// Auth
	SecretKey       string
	SessionDuration time.Duration

	// Time zone used for month boundaries and chart bucketing
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string

	// Mail
	MailBackend    string
	MailFrom       string
	SendGridAPIKey string
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
}

func defaults() *Config {
	return &Config{
		Port:            "8080",
		BaseURL:         "http://localhost:8080",
		AuthRateLimit:   20,
		DBPath:          "spendlog.db",
		SecretKey:       defaultSecretKey,
		SessionDuration: 30 * 24 * time.Hour,
		Timezone:        "Local",
		LogLevel:        "info",
		LogFormat:       "text",
		MailBackend:     MailBackendLog,
		MailFrom:        "noreply@demo.com",
		AMQPExchange:    "spendlog",
		AMQPQueue:       "outbound_mail",
	}
}

// Load reads configuration from an optional .env file, an optional
// CONFIG_FILE (yaml, toml or json) and finally the process environment.
// Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.BaseURL = strings.TrimRight(getEnv("BASE_URL", c.BaseURL), "/")
	c.SecureCookie = getEnvBool("SECURE_COOKIE", c.SecureCookie)
	c.AuthRateLimit = getEnvInt("AUTH_RATE_LIMIT", c.AuthRateLimit)
	c.TrustProxy = getEnvBool("TRUST_PROXY", c.TrustProxy)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.SecretKey = getEnv("SECRET_KEY", c.SecretKey)
	c.SessionDuration = getEnvDuration("SESSION_DURATION", c.SessionDuration)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.MailBackend = strings.ToLower(getEnv("MAIL_BACKEND", c.MailBackend))
	c.MailFrom = getEnv("MAIL_FROM", c.MailFrom)
	c.SendGridAPIKey = getEnv("SENDGRID_API_KEY", c.SendGridAPIKey)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
}

// Location resolves Timezone. Validate guarantees it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid base URL '%s': must be absolute", c.BaseURL))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" && c.DBPath != ":memory:" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	if len(c.SecretKey) < 16 {
		problems = append(problems, "secret key must be at least 16 characters")
	} else if c.SecretKey == defaultSecretKey {
		problems = append(problems, "secret key must be changed from the default (set SECRET_KEY)")
	}

	if c.SessionDuration < time.Hour {
		problems = append(problems, fmt.Sprintf("invalid session duration %v: must be at least 1 hour", c.SessionDuration))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AuthRateLimit < 0 {
		problems = append(problems, fmt.Sprintf("invalid auth rate limit %d: must not be negative", c.AuthRateLimit))
	}

	backends := []string{MailBackendLog, MailBackendSendGrid, MailBackendAMQP}
	if !slices.Contains(backends, c.MailBackend) {
		problems = append(problems, fmt.Sprintf("invalid mail backend '%s': must be one of %v", c.MailBackend, backends))
	}
	if c.MailFrom == "" {
		problems = append(problems, "mail sender address cannot be empty")
	}
	switch c.MailBackend {
	case MailBackendSendGrid:
		if c.SendGridAPIKey == "" {
			problems = append(problems, "SENDGRID_API_KEY is required when MAIL_BACKEND=sendgrid")
		}
	case MailBackendAMQP:
		if u, err := url.Parse(c.AMQPURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': scheme must be 'amqp' or 'amqps'", c.AMQPURL))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			problems = append(problems, "AMQP exchange and queue names cannot be empty when MAIL_BACKEND=amqp")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
