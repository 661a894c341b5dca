package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultInputTopic  = "confession_events"
	DefaultOutputTopic = "notification_events"
)

const (
	// DefaultDLQPageSize is the page used by GET /admin/dlq when no range
	// is supplied (records 0..49).
	DefaultDLQPageSize = 50
	MaxDLQPageSize     = 1000
)

const (
	RedisKeyDLQIndex   = "notify:dlq:index"
	RedisKeyDLQRecords = "notify:dlq:records"
	RedisKeyBatchCount = "notify:batch:"
)

const (
	// RateLimitSweepInterval bounds memory growth of the admission
	// limiter; expired windows are purged on this cadence.
	RateLimitSweepInterval = time.Minute
)
