package main

import (
	"context"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/blobstore"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const (
	maxBodyBytes    = 20 << 20
	shutdownTimeout = 10 * time.Second
)

func cmdServe(rt *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(ctx context.Context, _ *cli.Command) error {
			return serve(ctx, rt.cfg, rt.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if pg.Pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	baseStore := pg.Store()
	store := audit.NewRecorder(audit.RecorderDependencies{Store: baseStore, Logger: logger})

	bot, err := assistant.New(ctx, cfg.Assistant, logger)
	if err != nil {
		return err
	}
	blobs, err := blobstore.New(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	if closer, ok := blobs.(io.Closer); ok {
		defer closer.Close()
	}

	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()
	dispatcher := worker.NewAsyncDispatcher(events.NewInMemoryDispatcher(), 256, logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Config:     cfg.Notification,
	})
	worker.StartNotificationWorker(workerCtx, notifications, dispatcher)

	tickets := service.NewTicketService(service.TicketDependencies{
		Store:         store,
		Assistant:     bot,
		Blobs:         blobs,
		Assignment:    newAssignment(cfg, redis, logger),
		Locker:        newLocker(cfg, redis, logger),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		AssistantName: cfg.Assistant.DisplayName,
		ReopenWindow:  cfg.Lifecycle.ReopenWindow(),
	})

	passwords := auth.NewPasswords(cfg.Auth.BcryptCost)
	authService := service.NewAuthService(service.AuthDependencies{
		Store:     baseStore,
		Tokens:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Passwords: passwords,
		Logger:    logger,
	})

	deps := map[string]handlers.Pinger{}
	if pg.Pool != nil {
		deps["postgres"] = pg
	}
	if redis.Client != nil {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	if cfg.Storage.Backend == "local" {
		app.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalDir)
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		StaffTickets:   handlers.NewStaffTicketsHandler(tickets),
		Admin:          handlers.NewAdminHandler(tickets),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), baseStore),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	stopWorker()
	dispatcher.Wait()
	return nil
}

func newLocker(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) service.TicketLocker {
	if cfg.Lock.Backend == "redis" {
		if redis.Client != nil {
			return persistence.NewRedisLocker(redis.Client, cfg.Lock.TTL(), logger)
		}
		logger.Warn("LOCK_BACKEND=redis without REDIS_ADDR; using in-process locks")
	}
	return persistence.NewLocalLocker()
}

func newAssignment(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) *service.AssignmentService {
	var strategy service.AssignmentStrategy = service.HistoryRoundRobin{}
	if cfg.Assignment.Strategy == "counter" {
		var counter service.Counter
		if redis.Client != nil {
			counter = service.NewRedisCounter(redis.Client)
		} else {
			logger.Warn("ASSIGNMENT_STRATEGY=counter without REDIS_ADDR; rotation resets on restart")
			counter = service.NewMemoryCounter()
		}
		strategy = service.RotationCounter{Counter: counter, Logger: logger}
	}
	logger.Info("assignment strategy", zap.String("strategy", strategy.Name()))
	return service.NewAssignmentService(service.AssignmentDependencies{Strategy: strategy, Logger: logger})
}
