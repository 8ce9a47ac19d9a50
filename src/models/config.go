package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Scheduler MSchedulerConfig `yaml:"scheduler"`
	Sources   []MSourceConfig  `yaml:"sources"`
	History   MHistoryConfig   `yaml:"history"`
	Sessions  MSessionConfig   `yaml:"sessions"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // none, sqlite, postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"` // seconds
	UserAgent      string   `yaml:"user_agent"`
}

type MSchedulerConfig struct {
	FetchTimeoutMs int `yaml:"fetch_timeout_ms"`
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffBaseMs  int `yaml:"backoff_base_ms"`
	BackoffMaxMs   int `yaml:"backoff_max_ms"`
}

type MSourceConfig struct {
	Name            string   `yaml:"name"`
	Kind            string   `yaml:"kind"`     // stocks, weather, news
	Provider        string   `yaml:"provider"` // simulated, yahoo, openweathermap, rss
	IntervalSeconds int      `yaml:"interval_seconds"`
	Symbols         []string `yaml:"symbols"` // instruments or cities
	APIKey          string   `yaml:"api_key"` // Optional
	URL             string   `yaml:"url"`     // Optional feed/endpoint override
	MaxItems        int      `yaml:"max_items"`
	Concurrency     int      `yaml:"concurrent_requests"`
	MarketHoursOnly bool     `yaml:"market_hours_only"`
	Seed            int64    `yaml:"seed"` // simulated providers only
}

type MHistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

type MSessionConfig struct {
	OutboundQueueSize int `yaml:"outbound_queue_size"`
}
