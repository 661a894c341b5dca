package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total admission decisions made by the rate limiter (count)",
		},
		[]string{"status"},
	)

	NotificationsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total notification jobs accepted into the delivery queue (count)",
		},
		[]string{"type"},
	)

	DeliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Total delivery attempts, by outcome (count)",
		},
		[]string{"status"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_ms",
			Help:    "Duration of a single delivery attempt in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Jobs currently waiting in the delivery queue (count)",
		},
	)

	RetriesScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_retries_scheduled_total",
			Help: "Jobs re-scheduled after a failed delivery attempt (count)",
		},
	)

	DeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dead_lettered_total",
			Help: "Jobs moved to the dead-letter store after exhausting retries (count)",
		},
		[]string{"type"},
	)

	DLQSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_dlq_size",
			Help: "Records currently held in the dead-letter store (count)",
		},
	)

	DLQRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_dlq_requeued_total",
			Help: "Dead-letter records re-enqueued by an operator (count)",
		},
	)

	EventRetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_retry_attempts_total",
			Help: "Retries of domain event handling before commit (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests routed through a circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Failures observed by a circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterQueueMetrics() {
	prometheus.MustRegister(NotificationsEnqueuedTotal)
	prometheus.MustRegister(DeliveryAttemptsTotal)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(RetriesScheduledTotal)
	prometheus.MustRegister(DeadLetteredTotal)
	prometheus.MustRegister(DLQSize)
	prometheus.MustRegister(DLQRequeuedTotal)
}

func RegisterHTTPMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(EventRetryAttemptsTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveDeliveryDuration(duration time.Duration, status string) {
	DeliveryDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func SetDLQSize(size int) {
	DLQSize.Set(float64(size))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
