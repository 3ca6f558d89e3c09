// Package api implements the HTTP query and control API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// Pagination bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BookReader provides read access to the stored book set.
type BookReader interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	Query(ctx context.Context, q storage.BookQuery) ([]*domain.Book, int, error)
}

// ChangeReader provides read access to the change history.
type ChangeReader interface {
	Recent(ctx context.Context, changeType string, limit, offset int) ([]domain.ChangeRecord, int, error)
}

// CrawlRunner starts one crawl run.
type CrawlRunner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
}

// Config configures the API server.
type Config struct {
	Address string
	// APIKey protects mutating endpoints. Empty disables the check.
	APIKey string
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(
	log logger.Interface,
	books BookReader,
	changes ChangeReader,
	runner CrawlRunner,
	cfg Config,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	h := newHandler(log, books, changes, newRunGuard(runner, log))

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	v1.GET("/books", h.listBooks)
	v1.GET("/books/:id", h.getBook)
	v1.GET("/changes", h.listChanges)

	protected := v1.Group("")
	protected.Use(apiKeyMiddleware(cfg.APIKey))
	protected.POST("/crawl", h.triggerCrawl)

	return router
}

// loggingMiddleware logs each request with its status and latency.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// apiKeyMiddleware rejects requests missing the configured API key.
func apiKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
