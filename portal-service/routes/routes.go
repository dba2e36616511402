package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "insureportal-backend/docs"
	"insureportal-backend/portal-service/handlers"
	"insureportal-backend/portal-service/middleware"
	"insureportal-backend/portal-service/services"
	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database/models"
)

// Dependencies are the services the HTTP layer is built from
type Dependencies struct {
	Config       *config.Config
	DB           *gorm.DB
	Auth         *services.AuthService
	Forms        *services.FormService
	Uploads      *services.UploadService
	PDF          *services.PDFService
	WebSocket    *services.WebSocketManager
	LoginLimiter *middleware.RateLimiter
}

// Setup builds the gin engine with every route of the portal.
func Setup(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	router.MaxMultipartMemory = 8 << 20

	router.Use(cors.New(cors.Config{
		AllowOrigins:     AllowedOrigins(cfg.FrontendURL),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", "X-Total-Count", "X-Page", "X-Total-Pages", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handlers.NewAuthHandler(deps.Auth, cfg.GinMode == gin.ReleaseMode)
	formHandler := handlers.NewFormHandler(deps.Forms, deps.PDF)
	uploadHandler := handlers.NewUploadHandler(deps.Uploads)
	streamHandler := handlers.NewStreamHandler(deps.WebSocket)
	metaHandler := handlers.NewMetaHandler(deps.DB, deps.WebSocket)

	tokens := deps.Auth.Tokens()
	requireAuth := middleware.AuthMiddleware(tokens)

	router.GET("/health", metaHandler.Health)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		loginLimit := deps.LoginLimiter.LoginRateLimitMiddleware(middleware.RateLimitConfig{
			MaxRequests:   cfg.GetLoginRateLimitMaxAttempts(),
			TimeWindow:    cfg.GetLoginRateLimitWindow(),
			BlockDuration: cfg.GetLoginRateLimitBlockDuration(),
		})
		auth.POST("/login", loginLimit, authHandler.Login)
		auth.POST("/register", loginLimit, authHandler.Register)
		auth.POST("/verify", authHandler.Verify)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", requireAuth, authHandler.Me)

		forms := api.Group("/forms", requireAuth)
		forms.GET("", formHandler.List)
		forms.POST("", formHandler.Create)
		forms.GET("/:id", formHandler.Get)
		forms.PUT("/:id", formHandler.Update)
		forms.DELETE("/:id", formHandler.Delete)
		forms.GET("/:id/pdf", formHandler.ExportPDF)

		api.POST("/upload", requireAuth, uploadHandler.Upload)
		api.GET("/catalog", requireAuth, metaHandler.Catalog)

		admin := api.Group("/admin", requireAuth, middleware.RequireRole(models.RoleAdmin))
		admin.GET("/stats", formHandler.Stats)
	}

	// Stored uploads are public; names are unguessable
	router.GET("/uploads/*name", uploadHandler.Serve)
	router.HEAD("/uploads/*name", uploadHandler.Serve)

	router.GET("/ws/forms", middleware.StreamAuthMiddleware(tokens), streamHandler.Forms)

	if cfg.GinMode != gin.ReleaseMode {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.FrontendDistDir != "" {
		router.NoRoute(spaHandler(cfg.FrontendDistDir))
	}

	return router
}

// AllowedOrigins splits the comma separated FRONTEND_URL
func AllowedOrigins(frontendURL string) []string {
	var origins []string
	for _, origin := range strings.Split(frontendURL, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return origins
}

// spaHandler serves the built single page app, falling back to index.html
// for client side routes.
func spaHandler(distDir string) gin.HandlerFunc {
	index := filepath.Join(distDir, "index.html")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		file := filepath.Join(distDir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
