package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateRateLimit(cfg.RateLimit); err != nil {
		errors = append(errors, err)
	}

	if err := validateQueue(cfg.Queue); err != nil {
		errors = append(errors, err)
	}

	if err := validateDLQ(cfg); err != nil {
		errors = append(errors, err)
	}

	if err := validateDelivery(cfg.Delivery); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}
	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if cfg.PostMax < 1 {
		return &ValidationError{
			Field:   "rate_limit.post_max",
			Message: "limit must be at least 1",
		}
	}
	if cfg.GetMax < 1 {
		return &ValidationError{
			Field:   "rate_limit.get_max",
			Message: "limit must be at least 1",
		}
	}
	if cfg.PostWindow < 1 || cfg.GetWindow < 1 {
		return &ValidationError{
			Field:   "rate_limit",
			Message: "windows must be at least 1 second",
		}
	}
	return nil
}

func validateQueue(cfg QueueConfig) error {
	if cfg.Workers < 1 {
		return &ValidationError{
			Field:   "queue.workers",
			Message: "at least one worker is required",
		}
	}
	if cfg.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "queue.max_attempts",
			Message: "max attempts must be at least 1",
		}
	}
	if cfg.Backoff.Multiplier < 1.0 {
		return &ValidationError{
			Field:   "queue.backoff.multiplier",
			Message: "multiplier below 1.0 would shrink retry delays",
		}
	}
	if cfg.Backoff.MaxInterval < cfg.Backoff.InitialInterval {
		return &ValidationError{
			Field:   "queue.backoff.max_interval",
			Message: "max interval must not be below the initial interval",
		}
	}
	return nil
}

func validateDLQ(cfg *Config) error {
	switch cfg.DLQ.Store {
	case "memory":
		return nil
	case "redis":
		if cfg.Database.Redis.Host == "" {
			return &ValidationError{
				Field:   "database.redis.host",
				Message: "redis host is required when dlq.store is redis",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "dlq.store",
			Message: fmt.Sprintf("unknown store %q, expected memory or redis", cfg.DLQ.Store),
		}
	}
}

func validateDelivery(cfg DeliveryConfig) error {
	switch cfg.Mode {
	case "log":
		return nil
	case "webhook":
		if cfg.Endpoint == "" {
			return &ValidationError{
				Field:   "delivery.endpoint",
				Message: "endpoint is required when delivery.mode is webhook",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "delivery.mode",
			Message: fmt.Sprintf("unknown mode %q, expected webhook or log", cfg.Mode),
		}
	}
}
