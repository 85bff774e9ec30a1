package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/auth"
	"github.com/BradenHooton/portfolio-gate/internal/config"
	"github.com/BradenHooton/portfolio-gate/internal/database"
	"github.com/BradenHooton/portfolio-gate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/portfolio-gate/internal/middleware"
	"github.com/BradenHooton/portfolio-gate/internal/repositories"
	"github.com/BradenHooton/portfolio-gate/internal/routes"
	"github.com/BradenHooton/portfolio-gate/internal/services"
	pkghttp "github.com/BradenHooton/portfolio-gate/pkg/http"
	pkglogger "github.com/BradenHooton/portfolio-gate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// attemptStore is what main needs from a store backend
type attemptStore interface {
	services.AttemptStore
	handlers.StoreHealthChecker
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Gate.StoreBackend))

	if cfg.Auth.PortfolioPassword == "" {
		logger.Warn("PORTFOLIO_PASSWORD is not set, every password attempt will fail")
	}

	// Attempt store
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openAttemptStore(startCtx, cfg, logger)
	startCancel()
	if err != nil {
		logger.Error("failed to open attempt store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// Session tokens
	tokenManager, err := auth.NewSessionTokenManager(cfg.Auth.SessionSigningSecret, cfg.Auth.SessionTokenTTL)
	if err != nil {
		logger.Error("failed to initialize session tokens", slog.Any("error", err))
		os.Exit(1)
	}

	// Lockout alerts
	var notifier services.LockoutNotifier = services.NoopLockoutNotifier{}
	if cfg.Alert.Enabled() {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err := services.NewSESLockoutNotifier(notifyCtx, cfg.Alert.AWSRegion, cfg.Alert.FromAddress, cfg.Alert.ToAddress, logger)
		notifyCancel()
		if err != nil {
			logger.Error("failed to initialize lockout alerts", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
		logger.Info("lockout alerts enabled", slog.String("region", cfg.Alert.AWSRegion))
	}

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)

	rateLimitService := services.NewRateLimitService(store, services.RateLimitConfig{
		MaxAttempts:     cfg.Gate.MaxAttempts,
		AttemptWindow:   cfg.Gate.AttemptWindow,
		LockoutDuration: cfg.Gate.LockoutDuration,
	}, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	gateService := services.NewGateService(
		rateLimitService,
		auth.NewCredentialVerifier(cfg.Auth.PortfolioPassword),
		tokenManager,
		timingDelay,
		notifier,
		logger,
		auditLogger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	gateHandler := handlers.NewGateHandler(gateService, ipConfig, logger)
	healthHandler := handlers.NewHealthHandler(store, cfg.Gate.StoreBackend, logger)

	// Setup router. chi's RealIP is not used: forwarding headers are resolved
	// by pkghttp.ExtractClientAddress against the trusted proxy list.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	routes.RegisterRoutes(router, gateHandler, healthHandler, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Gate.RequestsPerMinute,
		IPConfig:          ipConfig,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// openAttemptStore connects the configured backend and returns a close function
func openAttemptStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (attemptStore, func(), error) {
	switch cfg.Gate.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repositories.NewAttemptRecordRepository(db), db.Close, nil

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("unable to reach redis: %w", err)
		}
		logger.Info("attempt store redis connected", slog.String("addr", cfg.Redis.Addr))
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", slog.Any("error", err))
			}
		}
		return repositories.NewRedisAttemptRecordRepository(client, cfg.Redis.KeyPrefix, cfg.Gate.RecordTTL), closeFn, nil

	case config.StoreBackendMemory:
		logger.Warn("using in-memory attempt store, lockouts are lost on restart and not shared between instances")
		return repositories.NewMemoryAttemptRecordRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Gate.StoreBackend)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
