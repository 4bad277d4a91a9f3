package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for on-disk configuration. Empty values leave
// the default in place.
type FileConfig struct {
	Port            string `json:"port" yaml:"port" toml:"port"`
	BaseURL         string `json:"base_url" yaml:"base_url" toml:"base_url"`
	SecureCookie    *bool  `json:"secure_cookie" yaml:"secure_cookie" toml:"secure_cookie"`
	AuthRateLimit   *int   `json:"auth_rate_limit" yaml:"auth_rate_limit" toml:"auth_rate_limit"`
	TrustProxy      *bool  `json:"trust_proxy" yaml:"trust_proxy" toml:"trust_proxy"`
	DBPath          string `json:"db_path" yaml:"db_path" toml:"db_path"`
	SecretKey       string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	SessionDuration string `json:"session_duration" yaml:"session_duration" toml:"session_duration"`
	Timezone        string `json:"timezone" yaml:"timezone" toml:"timezone"`
	Log             struct {
		Level  string `json:"level" yaml:"level" toml:"level"`
		Format string `json:"format" yaml:"format" toml:"format"`
	} `json:"log" yaml:"log" toml:"log"`
	Mail struct {
		Backend        string `json:"backend" yaml:"backend" toml:"backend"`
		From           string `json:"from" yaml:"from" toml:"from"`
		SendGridAPIKey string `json:"sendgrid_api_key" yaml:"sendgrid_api_key" toml:"sendgrid_api_key"`
		AMQPURL        string `json:"amqp_url" yaml:"amqp_url" toml:"amqp_url"`
		AMQPExchange   string `json:"amqp_exchange" yaml:"amqp_exchange" toml:"amqp_exchange"`
		AMQPQueue      string `json:"amqp_queue" yaml:"amqp_queue" toml:"amqp_queue"`
	} `json:"mail" yaml:"mail" toml:"mail"`
}

// LoadFile parses a TOML, YAML or JSON configuration file, picked by extension.
func LoadFile(path string) (*FileConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}
	return &fc, nil
}

func (fc *FileConfig) apply(c *Config) error {
	setString(&c.Port, fc.Port)
	setString(&c.BaseURL, fc.BaseURL)
	if fc.SecureCookie != nil {
		c.SecureCookie = *fc.SecureCookie
	}
	if fc.AuthRateLimit != nil {
		c.AuthRateLimit = *fc.AuthRateLimit
	}
	if fc.TrustProxy != nil {
		c.TrustProxy = *fc.TrustProxy
	}
	setString(&c.DBPath, fc.DBPath)
	setString(&c.SecretKey, fc.SecretKey)
	if fc.SessionDuration != "" {
		d, err := time.ParseDuration(fc.SessionDuration)
		if err != nil {
			return fmt.Errorf("session_duration: %w", err)
		}
		c.SessionDuration = d
	}
	setString(&c.Timezone, fc.Timezone)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.MailBackend, strings.ToLower(fc.Mail.Backend))
	setString(&c.MailFrom, fc.Mail.From)
	setString(&c.SendGridAPIKey, fc.Mail.SendGridAPIKey)
	setString(&c.AMQPURL, fc.Mail.AMQPURL)
	setString(&c.AMQPExchange, fc.Mail.AMQPExchange)
	setString(&c.AMQPQueue, fc.Mail.AMQPQueue)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
