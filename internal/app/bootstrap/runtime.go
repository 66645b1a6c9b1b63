package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/http"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/adapters/resilience"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.Server
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	scheduler  *eventadapter.RetrainScheduler
	refresher  *eventadapter.ModelRefresher
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{MaxConns: cfg.MaxDBConns})
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = postgres.Close(db)
		return nil, err
	}

	var closers []io.Closer
	var modelCache ports.ModelCache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.WarnContext(ctx, "redis unavailable, model cache disabled",
				"module", "bootstrap",
				"layer", "runtime",
				"operation", "connect_redis",
				"outcome", "degraded",
				"error", err,
			)
		} else {
			modelCache = cache.NewRedisModelCache(redisClient)
			closers = append(closers, redisClient)
		}
	}

	repos := postgres.NewRepositories(db)
	models := resilience.NewModelStore(repos.Models, resilience.BreakerConfig{
		Name:             "model-store",
		FailureThreshold: uint32(max(cfg.StoreBreakerFailures, 1)),
		OpenTimeout:      cfg.StoreBreakerTimeout,
	}, logger)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:         cfg.ServiceID,
			ModelName:           cfg.ModelName,
			AdoptionThreshold:   cfg.AdoptionThreshold,
			TrainingSampleLimit: cfg.TrainingSampleLimit,
			RetrainTimeout:      cfg.RetrainTimeout,
			ModelCacheTTL:       cfg.ModelCacheTTL,
		},
		Logger:   logger,
		Outcomes: repos.Outcomes,
		Models:   models,
		Cache:    modelCache,
		Outbox:   repos.Outbox,
	})
	active := service.LoadActiveModel(ctx)
	logger.InfoContext(ctx, "active model loaded",
		"module", "bootstrap",
		"layer", "runtime",
		"operation", "load_active_model",
		"outcome", "success",
		"model", active.ModelName,
		"version", active.Version,
	)

	ready := func(ctx context.Context) error {
		if err := postgres.Ping(ctx, db); err != nil {
			return err
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
		}
		return nil
	}
	handler := httpadapter.NewHandler(service, ready)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewEngagementInternalServer(service))

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		topicByEvent := map[string]string{}
		if cfg.KafkaTopicModelEvents != "" {
			topicByEvent[domain.EventModelAdopted] = cfg.KafkaTopicModelEvents
			topicByEvent[domain.EventModelRejected] = cfg.KafkaTopicModelEvents
		}
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicByEvent)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.KafkaTopicRetrainRequested, cfg.KafkaTopicOutcomeRecorded},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, eventadapter.Topics{
		RetrainRequested: cfg.KafkaTopicRetrainRequested,
		OutcomeRecorded:  cfg.KafkaTopicOutcomeRecorded,
	}, cfg.ConsumerPollInterval)
	schedulerActor := application.Actor{SubjectID: "retrain-scheduler", Role: "service"}
	scheduler := eventadapter.NewRetrainScheduler(logger, func(ctx context.Context) (domain.RetrainOutcome, error) {
		return service.Retrain(ctx, schedulerActor, "")
	}, cfg.RetrainInterval)
	refresher := eventadapter.NewModelRefresher(logger, service.RefreshActiveModel, cfg.ModelRefresh)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcHealth: healthSrv,
		outbox:     outbox,
		consumer:   consumer,
		scheduler:  scheduler,
		refresher:  refresher,
		cleanupFn: func(context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = postgres.Close(db)
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.refresher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		r.grpcHealth.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.httpServer.Shutdown(shutdownCtx)
		r.grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	if err != nil {
		r.logger.ErrorContext(ctx, "runtime failure",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "run_api",
			"outcome", "failure",
			"error", err,
		)
	}
	r.cleanupFn(context.Background())
	return err
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, run := range []func(context.Context) error{r.outbox.Run, r.consumer.Run, r.scheduler.Run} {
		run := run
		g.Go(func() error {
			if err := run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	r.cleanupFn(context.Background())
	return err
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
