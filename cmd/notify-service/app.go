package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"confide/internal/broker"
	"confide/internal/config"
	"confide/internal/constants"
	"confide/internal/delivery"
	"confide/internal/dlq"
	"confide/internal/logger"
	"confide/internal/notification"
	"confide/internal/queue"
	"confide/pkg/health"
	"confide/pkg/metrics"
	"confide/pkg/middleware"
	"confide/pkg/ratelimit"
	"confide/pkg/tracing"
)

type App struct {
	config *config.Config
	logger logger.Logger

	redisClient *redis.Client
	limiter     *ratelimit.Limiter
	queue       *queue.Queue
	dlqService  *dlq.Service
	notifySvc   *notification.Service
	consumer    broker.Consumer
	producer    broker.Producer

	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize delivery pipeline: %w", err)
	}

	if err := a.initConsumer(); err != nil {
		return fmt.Errorf("failed to initialize broker consumer: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.config.Tracing, "notify-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if a.config.Database.Redis.Host == "" {
		if a.config.DLQ.Store == "redis" {
			return fmt.Errorf("dlq store is redis but no redis host configured")
		}
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.config.Database.Redis.Host, a.config.Database.Redis.Port),
		Password: a.config.Database.Redis.Password,
		DB:       a.config.Database.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	a.redisClient = client
	a.logger.InfowCtx(ctx, "Connected to Redis",
		"host", a.config.Database.Redis.Host,
		"port", a.config.Database.Redis.Port,
	)
	return nil
}

// initPipeline wires the delivery side: deliverer decorators, the worker
// queue, and the dead-letter service. The queue and DLQ service reference
// each other, so the dead-letterer is bound after both exist.
func (a *App) initPipeline() error {
	var deliverer delivery.Deliverer
	switch a.config.Delivery.Mode {
	case "webhook":
		deliverer = delivery.NewWebhookDeliverer(a.config.Delivery.Endpoint, a.config.Delivery.Timeout, a.logger)
	default:
		deliverer = delivery.NewLogDeliverer(a.logger)
	}

	if a.config.Delivery.OutboundRPS > 0 {
		deliverer = delivery.NewPacedDeliverer(deliverer, a.config.Delivery.OutboundRPS, a.config.Delivery.OutboundBurst)
	}
	if a.config.CircuitBreaker.Enabled {
		deliverer = delivery.NewBreakerDeliverer(deliverer, a.config.CircuitBreaker)
	}

	processor := queue.NewProcessor(deliverer, a.config.Queue, a.logger)
	a.queue = queue.New(a.config.Queue, processor, a.logger)

	var store dlq.Store
	switch a.config.DLQ.Store {
	case "redis":
		store = dlq.NewRedisStore(a.redisClient)
	default:
		store = dlq.NewMemoryStore()
	}

	a.dlqService = dlq.NewService(store, a.queue, a.logger)
	a.queue.SetDeadLetterer(a.dlqService)

	var batches notification.BatchCounter
	if a.redisClient != nil {
		batches = notification.NewRedisBatchCounter(a.redisClient)
	} else {
		batches = notification.NewMemoryBatchCounter()
	}

	a.notifySvc = notification.NewService(a.queue, batches, a.config.Notifications, a.logger)
	return nil
}

func (a *App) initConsumer() error {
	if a.config.Broker.Type == "" || len(a.config.Broker.Kafka.Brokers) == 0 {
		a.logger.Infow("No broker configured, event intake disabled")
		return nil
	}

	consumer, err := broker.NewConsumer(a.config.Broker, a.logger)
	if err != nil {
		return err
	}
	a.consumer = consumer

	producer, err := broker.NewProducer(a.config.Broker, a.logger)
	if err != nil {
		return err
	}
	a.producer = producer
	a.dlqService.SetAnnouncer(producer, a.config.Broker.Kafka.OutputTopic)
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("notify-service"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	a.limiter = ratelimit.New(ratelimit.Config{
		Post: ratelimit.Rule{
			Limit:  a.config.RateLimit.PostMax,
			Window: time.Duration(a.config.RateLimit.PostWindow) * time.Second,
		},
		Get: ratelimit.Rule{
			Limit:  a.config.RateLimit.GetMax,
			Window: time.Duration(a.config.RateLimit.GetWindow) * time.Second,
		},
	}, ratelimit.WithSweepInterval(constants.RateLimitSweepInterval))

	notifyHandler := notification.NewHandler(a.notifySvc, a.queue, a.dlqService, a.logger)
	notifyHandler.RegisterRoutes(router, a.limiter)

	dlqHandler := dlq.NewHandler(a.dlqService, a.logger)
	dlqHandler.RegisterRoutes(router)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterQueueMetrics()
	if a.consumer != nil {
		metrics.RegisterBrokerMetrics()
	}
	if a.config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewQueueChecker(a.queue))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: a.router,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	a.queue.Start()

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(runCtx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			topic := a.config.Broker.Kafka.InputTopic
			if topic == "" {
				topic = constants.DefaultInputTopic
			}
			err := a.consumer.Consume(runCtx, topic, a.notifySvc.HandleEvent)
			if err != nil && runCtx.Err() == nil {
				return fmt.Errorf("consumer error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-runCtx.Done()
		return a.Shutdown(runCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if err := a.queue.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("queue stop error: %w", err))
	}

	a.limiter.Stop()

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
