// Package http is the HTTP adapter over the workflow engine. It is a
// thin layer: authentication resolves the actor, handlers bind JSON
// and delegate, and engine error codes map onto HTTP statuses.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencivic/civicflow/internal/identity"
	"github.com/opencivic/civicflow/internal/media"
	"github.com/opencivic/civicflow/internal/repository"
	"github.com/opencivic/civicflow/internal/workflow"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// Server is the HTTP adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	engine     *workflow.Engine
	tokens     *identity.TokenIssuer
	users      *repository.UserRepository
	media      media.Store
	logger     *zap.Logger
}

// NewServer creates the HTTP server and wires its routes
func NewServer(
	config ServerConfig,
	engine *workflow.Engine,
	tokens *identity.TokenIssuer,
	users *repository.UserRepository,
	mediaStore media.Store,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config: config,
		router: gin.New(),
		engine: engine,
		tokens: tokens,
		users:  users,
		media:  mediaStore,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsCfg := cors.DefaultConfig()
	if len(s.config.CORSOrigins) == 1 && s.config.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.config.CORSOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	s.router.Use(cors.New(corsCfg))
}

// loggingMiddleware logs every request with latency and status
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
	}

	protected := api.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.POST("/issues", s.reportIssue)
		protected.GET("/issues", s.listIssues)
		protected.GET("/issues/:id", s.getIssue)
		protected.GET("/issues/:id/assignments", s.listAssignments)
		protected.POST("/issues/:id/assign", s.assignToDepartment)
		protected.POST("/issues/:id/tender", s.createTender)
		protected.POST("/issues/:id/resolve", s.markCompleteDirectly)
		protected.PATCH("/issues/:id/status", s.updateIssueStatus)

		protected.GET("/tenders", s.listTenders)
		protected.GET("/tenders/mine", s.listContractorTenders)
		protected.POST("/tenders/:id/bids", s.submitBid)
		protected.GET("/tenders/:id/bids", s.listBids)
		protected.POST("/tenders/:id/start", s.startWork)
		protected.POST("/tenders/:id/progress", s.submitProgress)
		protected.GET("/tenders/:id/progress", s.listProgress)

		protected.GET("/bids", s.listMyBids)
		protected.POST("/bids/:id/accept", s.acceptBid)
		protected.POST("/progress/:id/verify", s.verifyWork)

		protected.POST("/media", s.uploadMedia)
	}
}

// Start runs the server until ctx is cancelled, then shuts down
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
