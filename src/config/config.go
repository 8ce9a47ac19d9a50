package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-pulse/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

const envPrefix = "MARKET_PULSE_"

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Optional .env next to the config (API keys stay out of YAML)
	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "market-pulse"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "none"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Scheduler.FetchTimeoutMs == 0 {
		c.Scheduler.FetchTimeoutMs = 5000
	}
	if c.Scheduler.MaxAttempts == 0 {
		c.Scheduler.MaxAttempts = 3
	}
	if c.Scheduler.BackoffBaseMs == 0 {
		c.Scheduler.BackoffBaseMs = 500
	}
	if c.Scheduler.BackoffMaxMs == 0 {
		c.Scheduler.BackoffMaxMs = 8000
	}
	if c.History.Capacity == 0 {
		c.History.Capacity = 20
	}
	if c.Sessions.OutboundQueueSize == 0 {
		c.Sessions.OutboundQueueSize = 64
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Kind == "" {
			src.Kind = src.Name
		}
		if src.Name == "" {
			src.Name = src.Kind
		}
		if src.Provider == "" {
			src.Provider = "simulated"
			if src.Kind == string(models.KindNews) {
				src.Provider = "rss"
			}
		}
		if src.MaxItems == 0 && src.Kind == string(models.KindNews) {
			src.MaxItems = 10
		}
		if src.Concurrency == 0 {
			src.Concurrency = 4
		}
	}
}

// -----------------------------------------------------------------------------

// applyEnv lets MARKET_PULSE_<SOURCE>_API_KEY override a source api_key.
func (c *Config) applyEnv() {
	for i := range c.Sources {
		src := &c.Sources[i]
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(src.Name, "-", "_")) + "_API_KEY"
		if v, ok := os.LookupEnv(key); ok && v != "" {
			src.APIKey = v
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	if c.Scheduler.FetchTimeoutMs <= 0 {
		return fmt.Errorf("fetch timeout must be greater than 0")
	}
	if c.Scheduler.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be greater than 0")
	}
	if c.Scheduler.BackoffBaseMs <= 0 || c.Scheduler.BackoffMaxMs < c.Scheduler.BackoffBaseMs {
		return fmt.Errorf("invalid backoff window %d..%d ms", c.Scheduler.BackoffBaseMs, c.Scheduler.BackoffMaxMs)
	}

	if c.History.Capacity <= 0 {
		return fmt.Errorf("history capacity must be greater than 0")
	}
	if c.Sessions.OutboundQueueSize <= 0 {
		return fmt.Errorf("outbound queue size must be greater than 0")
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one data source must be configured")
	}
	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name '%s'", src.Name)
		}
		seen[src.Name] = true

		switch models.SourceKind(src.Kind) {
		case models.KindStocks, models.KindWeather:
			if len(src.Symbols) == 0 {
				return fmt.Errorf("source '%s' must have at least one symbol", src.Name)
			}
		case models.KindNews:
		default:
			return fmt.Errorf("source '%s' has unknown kind '%s'", src.Name, src.Kind)
		}
		if src.IntervalSeconds <= 0 {
			return fmt.Errorf("source '%s' interval must be greater than 0", src.Name)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// FetchTimeout and friends convert the integer YAML fields.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scheduler.FetchTimeoutMs) * time.Millisecond
}

func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Scheduler.BackoffBaseMs) * time.Millisecond
}

func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Scheduler.BackoffMaxMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
