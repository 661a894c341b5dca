package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		RateLimit: RateLimitConfig{
			PostMax:    5,
			PostWindow: 60,
			GetMax:     50,
			GetWindow:  60,
		},
		Queue: QueueConfig{
			Workers:     1,
			MaxAttempts: 5,
			Backoff: BackoffConfig{
				InitialInterval: time.Second,
				MaxInterval:     time.Minute,
				Multiplier:      2.0,
			},
		},
		DLQ:      DLQConfig{Store: "memory"},
		Delivery: DeliveryConfig{Mode: "log"},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "invalid port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantError: true,
		},
		{
			name:      "zero post limit",
			mutate:    func(c *Config) { c.RateLimit.PostMax = 0 },
			wantError: true,
		},
		{
			name:      "zero window",
			mutate:    func(c *Config) { c.RateLimit.GetWindow = 0 },
			wantError: true,
		},
		{
			name:      "no workers",
			mutate:    func(c *Config) { c.Queue.Workers = 0 },
			wantError: true,
		},
		{
			name:      "zero max attempts",
			mutate:    func(c *Config) { c.Queue.MaxAttempts = 0 },
			wantError: true,
		},
		{
			name:      "shrinking backoff multiplier",
			mutate:    func(c *Config) { c.Queue.Backoff.Multiplier = 0.5 },
			wantError: true,
		},
		{
			name:      "max interval below initial",
			mutate:    func(c *Config) { c.Queue.Backoff.MaxInterval = time.Millisecond },
			wantError: true,
		},
		{
			name:      "unknown dlq store",
			mutate:    func(c *Config) { c.DLQ.Store = "postgres" },
			wantError: true,
		},
		{
			name: "redis store requires host",
			mutate: func(c *Config) {
				c.DLQ.Store = "redis"
				c.Database.Redis.Host = ""
			},
			wantError: true,
		},
		{
			name: "redis store with host",
			mutate: func(c *Config) {
				c.DLQ.Store = "redis"
				c.Database.Redis.Host = "localhost"
			},
			wantError: false,
		},
		{
			name:      "webhook mode requires endpoint",
			mutate:    func(c *Config) { c.Delivery.Mode = "webhook" },
			wantError: true,
		},
		{
			name: "webhook mode with endpoint",
			mutate: func(c *Config) {
				c.Delivery.Mode = "webhook"
				c.Delivery.Endpoint = "http://localhost:9000/hook"
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
