package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/archivus/sitedocs/internal/app/config"
	"github.com/archivus/sitedocs/internal/app/handlers"
	"github.com/archivus/sitedocs/internal/app/middleware"
	"github.com/archivus/sitedocs/internal/app/services"
	"github.com/archivus/sitedocs/internal/infrastructure/database"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/archivus/sitedocs/pkg/logger"
)

type Server struct {
	config   *config.Config
	logger   *logger.Logger
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceManager
}

// New connects the backing services and builds the router
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	databaseURL := cfg.GetDatabaseURL()
	if databaseURL == "" {
		databaseURL = "file:sitedocs.db"
		log.Warn("DATABASE_URL not set, using local SQLite database", "path", databaseURL)
	}

	db, err := database.New(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if db.IsSQLite() {
		// sqlite is only used locally and is migrated on start
		if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	sm, err := services.NewServiceManager(ctx, cfg, db, log)
	if err != nil {
		return nil, err
	}

	return NewWithServices(cfg, log, sm), nil
}

// NewWithServices builds the server around an existing service manager
func NewWithServices(cfg *config.Config, log *logger.Logger, sm *services.ServiceManager) *Server {
	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg))
	router.Use(loggingMiddleware(log))

	server := &Server{
		config:   cfg,
		logger:   log,
		router:   router,
		services: sm,
	}
	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return streamDeadlines(s.router)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         net.JoinHostPort(s.config.Server.Host, s.config.Server.Port),
		Handler:      streamDeadlines(s.router),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if closeErr := s.services.Close(); closeErr != nil {
		s.logger.Error("Error closing services", "error", closeErr)
	}
	return err
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes() {
	sm := s.services
	base := handlers.NewBaseHandler(handlers.NewHandlerConfig(s.config.Environment, s.config.Documents.MaxFileSize))

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	if sm.LocalFiles != nil {
		handlers.NewFilesHandler(base, sm.LocalFiles).RegisterRoutes(s.router)
	}

	v1 := s.router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/status", s.systemStatus)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(sm.Verifier))

		handlers.NewProjectHandler(base, sm.Projects).RegisterRoutes(protected)
		handlers.NewDocumentHandler(base, sm.Documents, sm.Versions, sm.Locks).RegisterRoutes(protected)
		handlers.NewVersionHandler(base, sm.Versions, sm.Documents).RegisterRoutes(protected)
		handlers.NewApprovalHandler(base, sm.Approvals).RegisterRoutes(protected)
		handlers.NewStreamHandler(base, sm.Notifier, s.logger).RegisterRoutes(protected)
	}
}

// Health check handler
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": s.config.Environment,
	})
}

// System status handler
func (s *Server) systemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := s.services.HealthCheck(ctx)
	status := "ok"
	for _, state := range checks {
		if state == "unhealthy" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"services":      checks,
		"storage":       s.config.Storage.Type,
		"notifications": s.config.Notifications.Backend,
		"timestamp":     time.Now().UTC(),
		"version":       "1.0.0",
	})
}

// corsMiddleware configures CORS
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(corsConfig)
}

// streamDeadlines clears the server write timeout for event streams, which
// stay open for as long as the client listens
func streamDeadlines(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/documents/stream") {
			_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests without their query strings, which
// carry access tokens and URL signatures
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
