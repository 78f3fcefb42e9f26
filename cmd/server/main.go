package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/storefront/internal/events"
	"github.com/yourorg/storefront/internal/featureflags"
	"github.com/yourorg/storefront/internal/handler"
	"github.com/yourorg/storefront/internal/infrastructure/logger"
	"github.com/yourorg/storefront/internal/infrastructure/redis"
	"github.com/yourorg/storefront/internal/observability/metrics"
	"github.com/yourorg/storefront/internal/observability/tracing"
	"github.com/yourorg/storefront/internal/reliability/retry"
	"github.com/yourorg/storefront/internal/repository"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/security/ratelimit"
	"github.com/yourorg/storefront/internal/service"
	"github.com/yourorg/storefront/internal/worker"
	"github.com/yourorg/storefront/pkg/cache"
	"github.com/yourorg/storefront/pkg/config"
	"github.com/yourorg/storefront/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting storefront server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing
	shutdownTracing, err := tracing.Init(ctx, log, "storefront", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres, retrying while it comes up
	var pool *database.ConnectionPool
	err = retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect", func(ctx context.Context) error {
		var connErr error
		pool, connErr = database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}, log)
		return connErr
	})
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis for the shared catalog cache (optional)
	var redisClient *redis.Client
	if featureflags.Enabled(featureflags.CatalogCache, true) {
		err = retry.Do(ctx, retry.DefaultConfig(), log, "redis connect", func(ctx context.Context) error {
			var connErr error
			redisClient, connErr = redis.NewClient(cfg.RedisURL)
			return connErr
		})
		if err != nil {
			log.Warn("redis unavailable, catalog cache degraded to database reads",
				slog.String("error", err.Error()))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	productRepo := repository.NewPostgresProductRepository(pool.GetDB(), log)
	orderRepo := repository.NewPostgresOrderRepository(pool.GetDB(), log)

	// 7. Security components
	secret := cfg.JWTSecret
	if secret == "" {
		// Tokens die with the process when the secret is generated; set
		// JWT_SECRET in anything beyond development.
		secret = randomSecret()
		log.Warn("JWT_SECRET not set, generated an ephemeral signing secret")
	}
	tokenManager := auth.NewTokenManager(secret, "storefront", cfg.TokenTTL)
	gate := middleware.NewAuthGate(tokenManager, userRepo, log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Services
	var broadcaster *events.Broadcaster
	if featureflags.Enabled(featureflags.OrderFeed, true) {
		broadcaster = events.NewBroadcaster()
	}
	memCache := cache.New()
	catalogService := service.NewCatalogService(productRepo, memCache, redisClient, cfg.MaxPageLimit, log)
	authService := service.NewAuthService(userRepo, tokenManager, log)
	orderService := service.NewOrderService(orderRepo, catalogService, broadcaster, log)

	// 9. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	productHandler := handler.NewProductHandler(catalogService, auditLogger, log)
	orderHandler := handler.NewOrderHandler(orderService, auditLogger, log)
	var redisPinger handler.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthHandler := handler.NewHealthHandler(pool, redisPinger, log)

	// 10. Routes
	limited := middleware.RateLimit(rateLimiter, log)
	protected := func(h http.Handler) http.Handler { return gate.Require(limited(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("POST /auth/change-password", protected(http.HandlerFunc(authHandler.ChangePassword)))

	mux.HandleFunc("GET /products", productHandler.List)
	mux.HandleFunc("GET /products/{id}", productHandler.Get)
	mux.Handle("POST /products", protected(http.HandlerFunc(productHandler.Create)))
	mux.Handle("PUT /products/{id}", protected(http.HandlerFunc(productHandler.Update)))
	mux.Handle("DELETE /products/{id}", protected(http.HandlerFunc(productHandler.Delete)))

	mux.Handle("GET /orders", protected(http.HandlerFunc(orderHandler.List)))
	mux.Handle("POST /orders", protected(http.HandlerFunc(orderHandler.Create)))

	if broadcaster != nil {
		feedHandler := handler.NewOrderFeedHandler(broadcaster, gate, cfg.CORSAllowedOrigins, log)
		mux.Handle("GET /ws/orders", feedHandler)
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Liveness)
	mux.HandleFunc("GET /readyz", healthHandler.Readiness)

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request ID -> metrics -> content-type validation -> CORS -> mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.RequireJSON(log)(handlerWithCORS),
		),
		log,
	)

	// 11. Start stats worker in background
	statsWorker := worker.NewStatsWorker(productRepo, orderRepo, broadcaster, memCache, log, cfg.StatsInterval)
	go statsWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Duration("token_ttl", cfg.TokenTTL),
		slog.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop stats worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers
// and writes the access log line once the request finishes
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
