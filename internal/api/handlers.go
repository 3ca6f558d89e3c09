package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// handler holds the route implementations.
type handler struct {
	log     logger.Interface
	books   BookReader
	changes ChangeReader
	runs    *runGuard
}

func newHandler(log logger.Interface, books BookReader, changes ChangeReader, runs *runGuard) *handler {
	return &handler{
		log:     log.WithComponent("api"),
		books:   books,
		changes: changes,
		runs:    runs,
	}
}

// health reports service liveness.
func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listBooks returns books matching the query filters.
func (h *handler) listBooks(c *gin.Context) {
	query := storage.BookQuery{
		Category: c.Query("category"),
		SortBy:   c.Query("sort"),
	}

	var parseErr error
	if query.MinPrice, parseErr = optionalFloat(c.Query("min_price")); parseErr != nil {
		badRequest(c, "min_price must be a number")
		return
	}
	if query.MaxPrice, parseErr = optionalFloat(c.Query("max_price")); parseErr != nil {
		badRequest(c, "max_price must be a number")
		return
	}
	if query.Rating, parseErr = optionalInt(c.Query("rating")); parseErr != nil {
		badRequest(c, "rating must be an integer")
		return
	}

	query.Limit, query.Offset = pagination(c)

	books, total, err := h.books.Query(c.Request.Context(), query)
	if err != nil {
		h.serverError(c, "list books", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"books":  books,
		"total":  total,
		"limit":  query.Limit,
		"offset": query.Offset,
	})
}

// getBook returns a single book by ID.
func (h *handler) getBook(c *gin.Context) {
	book, err := h.books.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if err != nil {
		h.serverError(c, "get book", err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// listChanges returns recent change records, optionally filtered by type.
func (h *handler) listChanges(c *gin.Context) {
	changeType := c.Query("type")
	switch changeType {
	case "", "new", "updated", "deleted":
	default:
		badRequest(c, "type must be one of new, updated, deleted")
		return
	}

	limit, offset := pagination(c)

	changes, total, err := h.changes.Recent(c.Request.Context(), changeType, limit, offset)
	if err != nil {
		h.serverError(c, "list changes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// triggerCrawl starts a crawl run in the background. Only one run may be
// in flight at a time.
func (h *handler) triggerCrawl(c *gin.Context) {
	if !h.runs.tryStart() {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl run is already in progress"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "crawl started"})
}

// serverError logs the error and returns a generic 500.
func (h *handler) serverError(c *gin.Context, op string, err error) {
	h.log.Error(op+" failed", "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pagination reads limit/offset query params with bounds applied.
func pagination(c *gin.Context) (limit, offset int) {
	limit = DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func optionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// runGuard serializes crawl runs triggered over the API.
type runGuard struct {
	runner  CrawlRunner
	log     logger.Interface
	running atomic.Bool
}

func newRunGuard(runner CrawlRunner, log logger.Interface) *runGuard {
	return &runGuard{runner: runner, log: log.WithComponent("api")}
}

// tryStart launches a background run unless one is already in flight.
func (g *runGuard) tryStart() bool {
	if !g.running.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		defer g.running.Store(false)
		if _, err := g.runner.Run(context.Background()); err != nil {
			g.log.Error("triggered crawl run failed", "error", err.Error())
		}
	}()

	return true
}
