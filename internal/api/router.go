package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/digital-card-api/internal/auth"
	"github.com/digital-card-api/internal/config"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

const (
	principalKey       = "principal"
	healthCheckTimeout = 2 * time.Second
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, health repository.HealthChecker, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Import.MaxUploadSize + 1<<20

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.CORSOrigin))
	router.Use(authMiddleware(services.Auth))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	cardHandler := NewCardHandler(services, log)
	importHandler := NewImportHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(health))
	router.GET("/metrics", metricsHandler(services))

	// API v1
	v1 := router.Group("/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", requireAuth(), authHandler.Me)
		}

		v1.GET("/covers", cardHandler.ListCovers)

		// Card endpoints; detail, vCard and QR are public
		cards := v1.Group("/cards")
		{
			cards.GET("", requireAuth(), cardHandler.ListCards)
			cards.POST("", requireAuth(), cardHandler.CreateCard)
			cards.GET("/:slug", cardHandler.GetCard)
			cards.PUT("/:slug", requireAuth(), cardHandler.UpdateCard)
			cards.DELETE("/:slug", requireAuth(), cardHandler.DeleteCard)
			cards.GET("/:slug/vcard", cardHandler.DownloadVCard)
			cards.GET("/:slug/qr", cardHandler.QRCode)
		}

		// Import endpoints
		imports := v1.Group("/imports")
		{
			imports.POST("", requireAuth(), importHandler.CreateImport)
			imports.GET("/template", importHandler.DownloadTemplate)
			imports.GET("/:job_id", requireAuth(), importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", requireAuth(), importHandler.GetImportErrors)
		}

		// Export endpoints
		exports := v1.Group("/exports")
		{
			exports.GET("/cards", requireAuth(), exportHandler.StreamCards)
		}
	}

	return router
}

// NewHTTPHandler wraps the router with per-IP rate limiting
func NewHTTPHandler(router http.Handler, cfg *config.Config) http.Handler {
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return router
	}
	return httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute)(router)
}

// healthCheck returns the health status, pinging the store
func healthCheck(health repository.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, healthCheckTimeout)
		defer cancel()

		status, code, storeStatus := "healthy", http.StatusOK, "up"
		if health != nil {
			if err := health.HealthCheck(ctx); err != nil {
				status, code, storeStatus = "unhealthy", http.StatusServiceUnavailable, "down"
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"store":     storeStatus,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "digital-card-api",
		})
	}
}

// metricsHandler returns record counts
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cardsCount, _ := services.Export.GetCount(ctx, "cards")
		usersCount, _ := services.Export.GetCount(ctx, "users")
		importsCount, _ := services.Export.GetCount(ctx, "imports")

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"cards":   cardsCount,
				"users":   usersCount,
				"imports": importsCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if p := principalFrom(c); p != nil {
			event = event.Str("user_id", p.UserID)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// authMiddleware resolves a bearer token, if any, to the request principal.
// An invalid token is rejected even on public routes.
func authMiddleware(authSvc service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed Authorization header"})
			return
		}

		principal, err := authSvc.Authenticate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// requireAuth rejects requests without a principal
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principalFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) *auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*auth.Principal)
	return p
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
