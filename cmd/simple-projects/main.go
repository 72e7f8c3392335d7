package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-projects/internal/cache"
	"github.com/tendant/simple-projects/internal/config"
	httpserver "github.com/tendant/simple-projects/internal/http"
	"github.com/tendant/simple-projects/internal/http/features/health"
	"github.com/tendant/simple-projects/pkg/auth"
	"github.com/tendant/simple-projects/pkg/repository"
	"github.com/tendant/simple-projects/pkg/service"
	"github.com/tendant/simple-projects/pkg/store"
	"github.com/tendant/simple-projects/pkg/store/memory"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	backend, err := openBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Optional revocation cache; the session table stays authoritative.
	var revocations auth.Revocations
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, revocation checks use the session store only", "error", err)
		} else {
			defer rdb.Close()
			revocations = cache.NewRevocations(rdb)
		}
	}

	// Initialize services
	repos := backend.Repos()
	tokenService := auth.NewTokenService(auth.TokenConfig{
		AccessTokenTTL: cfg.AccessTokenTTL,
		JWTSecret:      []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
	}, repos, revocations, logger)
	validator := auth.NewValidator(cfg.PasswordPolicy, cfg.Validation)
	passwordService := auth.NewPasswordService(backend, repos, tokenService, validator)
	projectService := service.NewProjectService(backend, repos, logger)
	taskService := service.NewTaskService(repos, logger)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:        logger,
		Backend:       backend,
		StorageDriver: cfg.StorageDriver,
		App: health.AppInfo{
			Name:        cfg.AppName,
			Environment: cfg.AppEnv,
			Debug:       cfg.Debug,
		},
		PasswordService: passwordService,
		TokenService:    tokenService,
		ProjectService:  projectService,
		TaskService:     taskService,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
		CookieSecure:    cfg.IsProduction(),
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func openBackend(cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	db, err := repository.NewDB(repository.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repository.ValidateSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w (run the migrations first)", err)
	}

	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)
	return repository.NewStore(db), nil
}
