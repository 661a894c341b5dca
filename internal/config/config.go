package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Queue          QueueConfig          `mapstructure:"queue"`
	DLQ            DLQConfig            `mapstructure:"dlq"`
	Delivery       DeliveryConfig       `mapstructure:"delivery"`
	Notifications  NotificationsConfig  `mapstructure:"notifications"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string    `mapstructure:"brokers"`
	GroupID     string      `mapstructure:"group_id"`
	InputTopic  string      `mapstructure:"input_topic"`
	OutputTopic string      `mapstructure:"output_topic"`
	Retry       RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig carries the fixed-window admission limits, split by
// method class. Windows are in seconds.
type RateLimitConfig struct {
	PostMax    int `mapstructure:"post_max"`
	PostWindow int `mapstructure:"post_window"`
	GetMax     int `mapstructure:"get_max"`
	GetWindow  int `mapstructure:"get_window"`
}

type QueueConfig struct {
	Workers              int           `mapstructure:"workers"`
	BufferSize           int           `mapstructure:"buffer_size"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	AttemptTimeout       time.Duration `mapstructure:"attempt_timeout"`
	SlowAttemptThreshold time.Duration `mapstructure:"slow_attempt_threshold"`
	Backoff              BackoffConfig `mapstructure:"backoff"`
}

type BackoffConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type DLQConfig struct {
	Store string `mapstructure:"store"` // "memory" or "redis"
}

type DeliveryConfig struct {
	Mode          string        `mapstructure:"mode"` // "webhook" or "log"
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	OutboundRPS   float64       `mapstructure:"outbound_rps"`
	OutboundBurst int           `mapstructure:"outbound_burst"`
}

type NotificationsConfig struct {
	Batch BatchConfig `mapstructure:"batch"`
}

// BatchConfig controls collapsing of rapid-fire message notifications
// into a single message_batch notification.
type BatchConfig struct {
	Threshold     int `mapstructure:"threshold"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
