package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("rate_limit.post_max", 5)
	viper.SetDefault("rate_limit.post_window", 60)
	viper.SetDefault("rate_limit.get_max", 50)
	viper.SetDefault("rate_limit.get_window", 60)

	viper.SetDefault("queue.workers", 1)
	viper.SetDefault("queue.buffer_size", 1024)
	viper.SetDefault("queue.max_attempts", 5)
	viper.SetDefault("queue.attempt_timeout", "30s")
	viper.SetDefault("queue.slow_attempt_threshold", "5s")
	viper.SetDefault("queue.backoff.initial_interval", "1s")
	viper.SetDefault("queue.backoff.max_interval", "1m")
	viper.SetDefault("queue.backoff.multiplier", 2.0)

	viper.SetDefault("dlq.store", "memory")

	viper.SetDefault("delivery.mode", "log")
	viper.SetDefault("delivery.timeout", "10s")
	viper.SetDefault("delivery.outbound_rps", 10.0)
	viper.SetDefault("delivery.outbound_burst", 20)

	viper.SetDefault("notifications.batch.threshold", 5)
	viper.SetDefault("notifications.batch.window_minutes", 10)
}

func bindEnvVariables() {
	viper.BindEnv("rate_limit.post_max", "RATE_LIMIT_POST_MAX")
	viper.BindEnv("rate_limit.post_window", "RATE_LIMIT_POST_WINDOW")
	viper.BindEnv("rate_limit.get_max", "RATE_LIMIT_GET_MAX")
	viper.BindEnv("rate_limit.get_window", "RATE_LIMIT_GET_WINDOW")

	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.output_topic", "BROKER_KAFKA_OUTPUT_TOPIC")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("delivery.mode", "DELIVERY_MODE")
	viper.BindEnv("delivery.endpoint", "DELIVERY_ENDPOINT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
