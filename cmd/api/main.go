package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront/internal/api/http"
	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
	"github.com/spec-kit/storefront/internal/persistence"
	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/service"
	"github.com/spec-kit/storefront/internal/storage"
	"github.com/spec-kit/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingJWTSecret) {
			log.Fatal("AUTH_JWT_SECRET must be set; refusing to start without a signing secret")
		}
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	var userRepo repository.UserRepository
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		logger.Warn("POSTGRES_DSN not set, users are kept in memory")
		userRepo = repository.NewMemoryUserRepository()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	pending := storage.NewRedisPendingUploads(redis.Client)

	readiness := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		readiness["postgres"] = pg
	}

	var blobs storage.BlobStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal("failed to init object storage", zap.Error(err))
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Fatal("failed to ensure bucket", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		blobs = objectStore
		readiness["storage"] = objectStore
	} else {
		logger.Warn("STORAGE_ENDPOINT not set, profile image uploads are disabled")
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger).RegisterHandlers()

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	if err := authService.SeedAdmin(ctx, cfg.Admin); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	profileService := service.NewProfileService(service.ProfileDependencies{
		UserRepo:      userRepo,
		Store:         blobs,
		Pending:       pending,
		Dispatcher:    dispatcher,
		Logger:        logger,
		MaxImageBytes: cfg.Storage.MaxImageBytes,
	})

	var sweeper *worker.BlobSweeper
	if blobs != nil {
		sweeper = worker.NewBlobSweeper(pending, blobs, userRepo, cfg.Storage.SweepSchedule, cfg.Storage.SweepGrace(), logger)
		if err := sweeper.Start(); err != nil {
			logger.Fatal("failed to schedule blob sweeper", zap.Error(err))
		}
	}

	limiter := httptransport.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	tokens := authService.TokenManager()
	cookie := auth.SessionCookie{
		Name:   cfg.Auth.CookieName,
		TTL:    tokens.TTL(),
		Secure: cfg.App.IsProduction(),
	}
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, readiness),
		Auth:           handlers.NewAuthHandler(authService, cookie),
		Profile:        handlers.NewProfileHandler(profileService),
		Pages:          handlers.NewPagesHandler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gate:           auth.NewGate(tokens, cookie, logger),
		RateLimiter:    limiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
