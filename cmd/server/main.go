package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medoshield/chatassist/internal/config"
	"github.com/medoshield/chatassist/internal/database"
	"github.com/medoshield/chatassist/internal/handlers"
	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/internal/middleware"
	"github.com/medoshield/chatassist/internal/services"
	"github.com/medoshield/chatassist/internal/services/ai"
	"github.com/medoshield/chatassist/internal/services/suggest"
)

const (
	retentionInterval = time.Hour
	// Headroom after the remote attempt for the local fallback and the write.
	writeTimeoutSlack = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting chat suggestion server...", map[string]interface{}{
		"env":      cfg.Server.Environment,
		"provider": cfg.AI.EffectiveProvider(),
	})

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Database.MigrationsPath)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if _, err := migrator.Apply(logger); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Suggestion engine
	provider, err := ai.NewProvider(cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("building suggestion provider: %w", err)
	}

	opts := []suggest.Option{
		suggest.WithLogger(logger),
		suggest.WithHistoryWindow(cfg.Suggest.HistoryWindow),
		suggest.WithTimeout(cfg.Suggest.RemoteTimeout),
	}
	logService := services.NewSuggestionLogService(db.Pool)
	if cfg.Suggest.RecordOutcomes {
		opts = append(opts, suggest.WithRecorder(logService))
	}
	engine := suggest.NewEngine(provider, opts...)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Suggest.LogRetention > 0 {
		go logService.RunRetention(bgCtx, cfg.Suggest.LogRetention, retentionInterval, logger)
	}

	// Handlers and middleware
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	suggestionHandler := handlers.NewSuggestionHandler(engine, logger)

	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)
	suggestLimiter := middleware.NewRateLimiter(redisDB.Client, cfg.RateLimit.Limit, cfg.RateLimit.Window,
		"ratelimit:suggest:", nil, false).WithLogger(logger)

	mux := http.NewServeMux()

	// Health endpoints (no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Chat suggestion endpoints
	mux.Handle("POST /api/health/chat/generate-suggestions", suggestLimiter.Middleware(http.HandlerFunc(suggestionHandler.Generate)))
	mux.HandleFunc("POST /api/health/chat/insert-suggestion", suggestionHandler.Insert)
	mux.HandleFunc("GET /api/health/chat/suggestion-defaults", suggestionHandler.Defaults)

	// Build middleware chain (order matters: outermost last)
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: serverWriteTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		stopBackground()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// serverWriteTimeout outlasts the longest remote attempt the engine can make,
// whichever of the client and engine bounds is larger.
func serverWriteTimeout(cfg *config.Config) time.Duration {
	return max(cfg.AI.RequestTimeout, cfg.Suggest.RemoteTimeout) + writeTimeoutSlack
}
