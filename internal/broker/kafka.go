package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"confide/internal/config"
	"confide/internal/constants"
	"confide/internal/logger"
	"confide/pkg/errors"
	"confide/pkg/logging"
	"confide/pkg/metrics"
	"confide/pkg/models"
	"confide/pkg/retry"
	"confide/pkg/tracing"
)

const serviceName = "notify-service"

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, event models.EventEnvelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := tracing.InjectTraceContext(ctx, []kafka.Header{})

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(event.ID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(serviceName, topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg    config.KafkaConfig
	wg     sync.WaitGroup
	reader *kafka.Reader
	logger logger.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:    cfg,
		logger: log,
	}
}

// Consume reads domain events from topic until ctx is canceled. Events
// that fail handling are retried with backoff; exhausted or fatal events
// are committed and skipped, since the delivery-level dead letter store
// only quarantines jobs that made it into the queue.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"topic", topic,
		)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}

			metrics.IncKafkaMessagesRead(serviceName, topic)

			var event models.EventEnvelope
			if err := json.Unmarshal(m.Value, &event); err != nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to unmarshal event",
					"error", err,
					"topic", topic,
				)
				_ = c.reader.CommitMessages(ctx, m)
				continue
			}

			msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)

			if event.Metadata.TraceID != "" {
				msgCtx = logging.WithTraceID(msgCtx, event.Metadata.TraceID)
			}
			msgCtx = logging.WithServiceName(msgCtx, serviceName)

			if err := c.processEventWithRetry(msgCtx, event, handler, topic); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to process event after retries",
					"error", err,
					"event_id", event.ID,
					"event_type", event.Type,
					"topic", topic,
				)
			}

			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}

			span.End()
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.wg.Wait()
	return err
}

func (c *KafkaConsumer) processEventWithRetry(ctx context.Context, event models.EventEnvelope, handler HandlerFunc, topic string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during event processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, event)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.EventRetryAttemptsTotal.WithLabelValues(serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying event processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}
