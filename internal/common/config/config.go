package config

import (
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ysv/peatio-core/internal/common/cnst"
)

type (
	// RangerConfig represents the ranger gateway configuration
	RangerConfig struct {
		Server  ServerConfig  `yaml:"server"`
		Logger  LoggerConfig  `yaml:"logger"`
		Auth    AuthConfig    `yaml:"auth"`
		Bus     BusConfig     `yaml:"bus"`
		Metrics MetricsConfig `yaml:"metrics"`
	}

	// ServerConfig represents the websocket listener configuration
	ServerConfig struct {
		Port             int    `yaml:"port"`
		Path             string `yaml:"path"`               // websocket endpoint path
		SessionQueueSize int    `yaml:"session_queue_size"` // outbound buffer per session
	}

	// AuthConfig represents the token verification configuration
	AuthConfig struct {
		JWTPublicKey string `yaml:"jwt_public_key"` // path to a PEM encoded RSA public key
	}

	// BusConfig represents the event bus configuration
	BusConfig struct {
		Type    string         `yaml:"type"`    // "memory" or "redis"
		Pattern string         `yaml:"pattern"` // channel pattern the gateway subscribes to
		Redis   BusRedisConfig `yaml:"redis"`   // Redis configuration
	}

	// BusRedisConfig represents the Redis configuration for the event bus
	BusRedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Namespace string `yaml:"namespace"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC"
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}
)

// Type constrains the configuration types LoadConfig can produce
type Type interface {
	RangerConfig
}

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig[T Type](path string) (*T, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if rangerCfg, ok := any(&cfg).(*RangerConfig); ok {
		setRangerDefaults(rangerCfg)
	}

	return &cfg, nil
}

// setRangerDefaults applies defaults after unmarshalling
func setRangerDefaults(cfg *RangerConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = "/"
	}
	if cfg.Server.SessionQueueSize <= 0 {
		cfg.Server.SessionQueueSize = 100
	}
	if cfg.Bus.Type == "" {
		cfg.Bus.Type = cnst.BusTypeMemory
	}
	if cfg.Bus.Pattern == "" {
		cfg.Bus.Pattern = cnst.EventsPattern
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "ranger"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
