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
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/remote"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/config"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/logging"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load(config.RoleDashboard)
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

	logger.Info("starting dashboard backend",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"remote_url", cfg.Analytics.RemoteURL,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Initialize Database Pool
	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	clk := clock.Real()
	recorder := metrics.Recorder{}
	loc := cfg.Analytics.Location()

	// 4. Ticket snapshot for the local fallback. A failed first load is
	// not fatal; readiness reports it until a refresh succeeds.
	ticketRepo := postgres.NewTicketRepository(pool, postgres.NewTransactionManager(pool, cfg.Database.StatementTimeout), loc)
	snapshot := services.NewTicketSnapshotService(ticketRepo, clk, recorder, logger)
	if err := snapshot.Refresh(ctx); err != nil {
		logger.Warn("initial ticket snapshot failed", "error", err)
	}

	// 5. Remote analytics client, authenticated with a short-lived
	// service token
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	serviceTokens := auth.NewServiceTokenSource(
		auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ServiceTokenTTL),
		cfg.JWT.ServiceSubject,
		auth.ScopeAnalyticsRead,
	)
	remoteClient := remote.NewClient(cfg.Analytics.RemoteURL, cfg.Analytics.RemoteTimeout, serviceTokens)

	// 6. Arbitration and live sessions
	engine := analytics.NewEngine(loc, cfg.Analytics.BacklogThresholdDays)
	arbitrator := services.NewArbitrator(remoteClient, snapshot, engine, clk, recorder, logger)

	hub := websocket.NewHub(websocket.HubConfig{
		Arbitrator:     arbitrator,
		Clock:          clk,
		DebounceWindow: cfg.Analytics.DebounceWindow,
		Recorder:       recorder,
	}, logger)
	go hub.Run(ctx)

	snapshot.OnRefresh(hub.RecomputeAll)
	go snapshot.Run(ctx, cfg.Analytics.SnapshotRefreshInterval)

	// 7. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	dashboardHandler := httpAdapter.NewDashboardHandler(arbitrator, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(cfg.App.Version,
		httpAdapter.NamedCheck{Name: "database", Checker: ticketRepo},
		httpAdapter.NamedCheck{Name: "snapshot", Checker: snapshot},
	)

	// 8. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{httpAdapter.HeaderMetricsSource, httpAdapter.HeaderMetricsDegraded, mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication is handled inside the handler
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			if cfg.RateLimit.Enabled {
				limiter := mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
					RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
					BurstSize:         cfg.RateLimit.BurstSize,
					CleanupInterval:   time.Minute,
					TTL:               3 * time.Minute,
				})
				r.Use(limiter.Middleware)
			}
			r.Use(mw.JWTMiddleware(tokenManager, auth.ScopeAnalyticsRead))
			r.Route("/dashboard", dashboardHandler.RegisterRoutes)
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Stop the hub and the refresh loop first so sessions close cleanly
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
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
