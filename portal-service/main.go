package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/routes"
	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database"
	"insureportal-backend/shared/events"
	applog "insureportal-backend/shared/logger"
)

// @title Insurance Portal API
// @version 1.0
// @description Insurance request forms, documents and summaries for clients and administrators.

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @tag.name auth
// @tag.description Login, registration and session
// @tag.name forms
// @tag.description Insurance request forms
// @tag.name uploads
// @tag.description Supporting documents
// @tag.name admin
// @tag.description Administrator views
// @tag.name meta
// @tag.description Catalog and health

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()
	applog.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		applog.Fatal().Err(err).Msg("❌ Failed to initialize database")
	}
	defer database.CloseDatabase()
	db := database.GetDB()

	// Upload storage
	storage, err := services.NewStorage(cfg)
	if err != nil {
		applog.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("❌ Failed to initialize upload storage")
	}

	// Form events: local hub, bridged through redis when configured
	hub := events.NewHub(64)
	var publisher events.Publisher = hub
	if cfg.RedisEnabled() {
		client, err := events.NewRedisClient(ctx, cfg)
		if err != nil {
			applog.Fatal().Err(err).Msg("❌ Failed to connect to Redis")
		}
		bridge := events.NewRedisBridge(client, cfg.EventsChannel, hub)
		defer bridge.Close()
		go func() {
			if err := bridge.Run(ctx); err != nil {
				applog.Error().Err(err).Msg("❌ Form event bridge stopped")
			}
		}()
		publisher = bridge
	}

	loginLimiter := middleware.NewRateLimiter(5 * time.Minute)
	defer loginLimiter.Stop()

	router := routes.Setup(routes.Dependencies{
		Config:       cfg,
		DB:           db,
		Auth:         services.NewDefaultAuthService(db, cfg),
		Forms:        services.NewFormService(db, publisher),
		Uploads:      services.NewUploadService(storage, cfg.GetUploadMaxFileSize()),
		PDF:          services.NewPDFService(),
		WebSocket:    services.NewWebSocketManager(hub, routes.AllowedOrigins(cfg.FrontendURL)...),
		LoginLimiter: loginLimiter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		applog.Info().Str("port", cfg.Port).Msg("🚀 Portal service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Fatal().Err(err).Msg("❌ Server failed")
		}
	}()

	<-ctx.Done()
	applog.Info().Msg("🛑 Shutting down portal service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		applog.Error().Err(err).Msg("❌ Graceful shutdown failed")
	}
}
