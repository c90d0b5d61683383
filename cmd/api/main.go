package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/redis"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/config"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/logging"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load(config.RoleAPI)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting analytics api",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"timezone", cfg.Analytics.Timezone,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Initialize Database Pool
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Optional result cache
	var (
		cache      ports.MetricsCache
		cacheCheck httpAdapter.HealthChecker
	)
	if cfg.Redis.Enabled() {
		client := redis.NewClient(ctx, cfg.Redis, logger)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}()
		metricsCache := redis.NewMetricsCache(client, cfg.Redis.TTL)
		cache, cacheCheck = metricsCache, metricsCache
	}

	// 5. Dependency Injection (Wiring the Hexagon)
	loc := cfg.Analytics.Location()
	txManager := postgres.NewTransactionManager(pool, cfg.Database.StatementTimeout)
	ticketRepo := postgres.NewTicketRepository(pool, txManager, loc)

	engine := analytics.NewEngine(loc, cfg.Analytics.BacklogThresholdDays)
	performanceService := services.NewPerformanceService(ticketRepo, cache, engine, clock.Real(), metrics.Recorder{}, logger)

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	analyticsHandler := httpAdapter.NewAnalyticsHandler(performanceService, clock.Real(), errorHandler, logger)

	checks := []httpAdapter.NamedCheck{{Name: "database", Checker: ticketRepo}}
	if cacheCheck != nil {
		checks = append(checks, httpAdapter.NamedCheck{Name: "redis", Checker: cacheCheck})
	}
	healthHandler := httpAdapter.NewHealthHandler(cfg.App.Version, checks...)

	// 6. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(mw.Metrics)

	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			limiter := mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.BurstSize,
				CleanupInterval:   time.Minute,
				TTL:               3 * time.Minute,
			})
			r.Use(limiter.Middleware)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager, auth.ScopeAnalyticsRead))
			r.Route("/analytics", analyticsHandler.RegisterRoutes)
		})
	})

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serve(srv, cfg.Server.ShutdownTimeout, stop, logger)
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// serve runs srv until SIGINT or SIGTERM, then cancels background work
// and drains in-flight requests.
func serve(srv *http.Server, shutdownTimeout time.Duration, stop context.CancelFunc, logger *slog.Logger) {
	go func() {
		logger.Info("server starting", "port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}
