package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/config"
	"github.com/joshua-takyi/homeswift/internal/connect"
	"github.com/joshua-takyi/homeswift/internal/container"
	"github.com/joshua-takyi/homeswift/internal/metrics"
	"github.com/joshua-takyi/homeswift/internal/routes"
)

const sessionPurgeInterval = time.Hour

func main() {
	// .env.local overrides .env; neither is required
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting HomeSwift API server", "environment", cfg.Environment, "storage", cfg.Storage)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients := container.Clients{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewDefault(),
	}

	if cfg.Storage != config.BackendMemory {
		clients.DB, err = connect.InitPostgres(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("Connected to Postgres successfully", "migrations", cfg.DB.RunMigrations)
	}

	clients.Supabase, err = connect.InitSupabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}

	var jwks *keyfunc.JWKS
	if cfg.SupabaseEnabled() {
		jwks, err = auth.NewJWKS(ctx, cfg.SupabaseURL, logger)
		if err != nil {
			logger.Error("Failed to load Supabase JWKS", "error", err)
			os.Exit(1)
		}
		clients.JWKS = jwks.Keyfunc
		logger.Info("Supabase auth enabled")
	}

	clients.Mongo, err = connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}

	clients.Redis = connect.RedisConnect(ctx, cfg, logger)

	clients.Cloudinary, err = connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}
	logEnabled(logger, cfg)

	appContainer, err := container.NewContainer(clients)
	if err != nil {
		logger.Error("Failed to build container", "error", err)
		os.Exit(1)
	}

	if appContainer.Views != nil {
		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := appContainer.Views.EnsureIndexes(idxCtx); err != nil {
			logger.Warn("Failed to ensure MongoDB indexes", "error", err)
		}
		cancel()
	}

	go purgeSessions(ctx, appContainer, logger)

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	appContainer.PropertyService.Wait()

	if jwks != nil {
		jwks.EndBackground()
	}
	if err := connect.MongoDBDisconnect(clients.Mongo); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}
	if clients.Redis != nil {
		if err := clients.Redis.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}
	if err := connect.ClosePostgres(clients.DB); err != nil {
		logger.Error("Error closing Postgres", "error", err)
	}

	logger.Info("Server exited")
}

func purgeSessions(ctx context.Context, c *container.Container, logger *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.AuthService.PurgeExpiredSessions(ctx); err != nil {
				logger.Warn("Session purge failed", "error", err)
			}
		}
	}
}

func logEnabled(logger *slog.Logger, cfg *config.Config) {
	logger.Info("Optional backends",
		"supabase", cfg.SupabaseEnabled(),
		"mongodb", cfg.MongoEnabled(),
		"redis", cfg.RedisEnabled(),
		"cloudinary", cfg.CloudinaryEnabled(),
	)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelInfo),
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel, slog.LevelDebug),
		})
	}

	return slog.New(handler)
}

// parseLevel honours an explicit LOG_LEVEL other than the "info" default.
func parseLevel(raw string, fallback slog.Level) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return fallback
}
