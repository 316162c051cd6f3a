// Package http provides the HTTP adapter over the application services.
// It is a thin layer: request parsing, error mapping, and nothing else.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ormeda/labdesk/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	quotes     service.QuoteService
	invoices   service.InvoiceService
	ledger     service.LedgerService
	stats      service.StatsService
	dashboard  DashboardSource
	logger     Logger
}

// NewServer creates a new HTTP server with the given services. dashboard may
// be nil when the refresher worker is disabled.
func NewServer(
	config ServerConfig,
	quotes service.QuoteService,
	invoices service.InvoiceService,
	ledger service.LedgerService,
	stats service.StatsService,
	dashboard DashboardSource,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:    config,
		router:    gin.New(),
		quotes:    quotes,
		invoices:  invoices,
		ledger:    ledger,
		stats:     stats,
		dashboard: dashboard,
		logger:    logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// requestIDMiddleware tags every request with an id for log correlation
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"request_id", c.GetString("request_id"),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.quotes, s.invoices, s.ledger, s.stats, s.dashboard, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		// Quotes
		api.POST("/quotes", handlers.CreateQuote)
		api.GET("/quotes", handlers.ListQuotes)
		api.GET("/quotes/search", handlers.SearchQuotes)
		api.GET("/quotes/:id", handlers.GetQuote)
		api.PATCH("/quotes/:id/status", handlers.UpdateQuoteStatus)
		api.PATCH("/quotes/:id/priority", handlers.UpdateQuotePriority)
		api.POST("/quotes/:id/notes", handlers.AddQuoteNote)
		api.POST("/quotes/:id/duplicate", handlers.DuplicateQuote)
		api.POST("/quotes/:id/invoice", handlers.DeriveInvoice)
		api.DELETE("/quotes/:id", handlers.DeleteQuote)

		// Invoices
		api.GET("/invoices", handlers.ListInvoices)
		api.GET("/invoices/:id", handlers.GetInvoice)
		api.POST("/invoices/:id/cancel", handlers.CancelInvoice)
		api.POST("/invoices/:id/transactions", handlers.RecordTransaction)

		// Transactions and ledger
		api.GET("/transactions", handlers.ListTransactions)
		api.POST("/transactions/:id/refund", handlers.RefundTransaction)
		api.POST("/ledger/entries", handlers.AddLedgerEntry)

		// Statistics
		api.GET("/stats", handlers.GetStats)
		api.GET("/stats/sales", handlers.GetSalesByPeriod)
		api.GET("/stats/dashboard", handlers.GetDashboard)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

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
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
