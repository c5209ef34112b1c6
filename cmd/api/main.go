package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/secrets"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		store = memory.NewStore()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		unread  cache.UnreadCounter
		revoked cache.RevocationList
	)
	if redis.Enabled() {
		unread = cache.NewRedisUnreadCounter(redis.Client, cfg.Redis.UnreadCountTTL())
		revoked = cache.NewRedisRevocationList(redis.Client)
	} else {
		unread = cache.NewMemoryUnreadCounter(cfg.Redis.UnreadCountTTL())
		revoked = cache.NewMemoryRevocationList()
	}

	gate, err := auth.NewGate()
	if err != nil {
		logger.Fatal("failed to load access policies", zap.Error(err))
	}
	sealer, err := secrets.NewSealer(cfg.Secrets.Key)
	if err != nil {
		logger.Fatal("failed to init secrets sealer", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(service.AuthDependencies{
		Store:       store,
		Tokens:      tokens,
		Hasher:      hasher,
		Revocations: revoked,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Unread:     unread,
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Gate:       gate,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:      store,
		Gate:       gate,
		Hasher:     hasher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	reportService := service.NewReportService(store, gate, notificationService, nil)

	notificationWorker := worker.NewNotificationWorker(notificationService,
		cfg.Worker.Retention(), cfg.Worker.SweepInterval(), logger)
	notificationWorker.Start()
	defer notificationWorker.Stop()

	if err := authService.EnsureAdmin(ctx, cfg.Bootstrap); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	app := httptransport.NewApp(cfg.App.Name, logger, metrics,
		httptransport.MiddlewareConfig{
			Timeout:      cfg.App.RequestTimeout(),
			AllowOrigins: cfg.App.CORSAllowOrigins,
			ExposeStack:  !cfg.IsProduction(),
		},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
			Auth:           handlers.NewAuthHandler(authService),
			Users:          handlers.NewUsersHandler(userService),
			Departments:    handlers.NewDepartmentsHandler(service.NewDepartmentService(store, gate)),
			Tickets:        handlers.NewTicketsHandler(ticketService),
			Notifications:  handlers.NewNotificationsHandler(notificationService),
			BacarKeys:      handlers.NewBacarKeysHandler(service.NewBacarKeyService(store, gate, sealer)),
			Reports:        handlers.NewReportsHandler(reportService, service.NewActivityService(store, gate)),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repos().Users, revoked, logger),
			Gate:           gate,
		})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
