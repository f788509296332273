package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neuroscan/config"
	"neuroscan/internal/handler"
	"neuroscan/internal/middleware"
	"neuroscan/internal/services"
	"neuroscan/internal/transport/httpdto"
	"neuroscan/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Upload *handler.UploadHandler
	Auth   *handler.AuthHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, hub *Hub) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := s.engine.Group("/api")
	{
		api.POST("/upload", handlers.Upload.Create)
		api.GET("/upload/:id", handlers.Upload.GetByID)
		api.PUT("/upload/:id/status", handlers.Upload.UpdateStatus)
		api.GET("/uploads", handlers.Upload.List)
		api.GET("/stats", handlers.Upload.Stats)

		if hub != nil {
			api.GET("/ws", ServeWS(hub, s.logger))
		}

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Auth.Register)
			auth.POST("/login", handlers.Auth.Login)
			auth.GET("/me", middleware.AuthMiddleware(authService), handlers.Auth.Me)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("route not found"))
	})
}

// Start runs the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Shutdown signal received, draining requests...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
