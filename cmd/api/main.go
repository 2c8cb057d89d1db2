package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/chat-platform/internal/api/http"
	"github.com/spec-kit/chat-platform/internal/api/http/handlers"
	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/config"
	"github.com/spec-kit/chat-platform/internal/events"
	"github.com/spec-kit/chat-platform/internal/limiter"
	"github.com/spec-kit/chat-platform/internal/llm"
	"github.com/spec-kit/chat-platform/internal/observability"
	"github.com/spec-kit/chat-platform/internal/persistence"
	"github.com/spec-kit/chat-platform/internal/repository"
	"github.com/spec-kit/chat-platform/internal/service"
	"github.com/spec-kit/chat-platform/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	healthDeps := map[string]handlers.Pinger{"postgres": pg}

	var loginLimiter limiter.Limiter = limiter.Nop{}
	if cfg.Limiter.Enabled {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		loginLimiter = limiter.NewRedis(redis.Client, cfg.Limiter.Window(), cfg.Limiter.MaxFailures, cfg.Limiter.BlockFor())
		healthDeps["redis"] = redis
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init file storage", zap.Error(err))
	}

	gateway, err := llm.NewGateway(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout(),
		Referer: cfg.LLM.Referer,
		Title:   cfg.LLM.Title,
	}, logger, metrics)
	if err != nil {
		logger.Fatal("failed to init completion gateway", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	promptRepo := repository.NewPromptRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	fileRepo := repository.NewFileRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	tokens := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTL())

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens,
		Limiter:    loginLimiter,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	projectService := service.NewProjectService(service.ProjectDependencies{
		ProjectRepo: projectRepo,
		PromptRepo:  promptRepo,
		FileRepo:    fileRepo,
		Blobs:       blobs,
		Logger:      logger,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		ProjectRepo:         projectRepo,
		PromptRepo:          promptRepo,
		MessageRepo:         messageRepo,
		Completer:           gateway,
		Dispatcher:          dispatcher,
		Logger:              logger,
		DefaultSystemPrompt: cfg.LLM.DefaultSystemPrompt,
	})
	fileService := service.NewFileService(projectRepo, fileRepo, blobs, cfg.Storage.MaxFileSize, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
		BodyLimit:    bodyLimit(cfg.Storage.MaxFileSize),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Auth:     handlers.NewAuthHandler(authService, cfg.Auth.CookieSecure),
		Projects: handlers.NewProjectsHandler(projectService),
		Chat:     handlers.NewChatHandler(chatService),
		Files:    handlers.NewFilesHandler(fileService),
		Sessions: auth.NewSessionResolver(tokens, userRepo),
		Metrics:  metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

// bodyLimit leaves room for multipart framing around the largest accepted upload.
func bodyLimit(maxFileSize int64) int {
	const overhead = 1 << 20
	limit := maxFileSize + overhead
	if limit < fiber.DefaultBodyLimit {
		return fiber.DefaultBodyLimit
	}
	return int(limit)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
