package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bookwatch/internal/api"
	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// fakeBookReader serves canned books and records the last query.
type fakeBookReader struct {
	mu        sync.Mutex
	books     map[string]*domain.Book
	lastQuery storage.BookQuery
	err       error
}

func (f *fakeBookReader) GetByID(_ context.Context, id string) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	book, exists := f.books[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return book, nil
}

func (f *fakeBookReader) Query(_ context.Context, q storage.BookQuery) ([]*domain.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	f.lastQuery = q

	books := make([]*domain.Book, 0, len(f.books))
	for _, book := range f.books {
		books = append(books, book)
	}
	return books, len(books), nil
}

func (f *fakeBookReader) queried() storage.BookQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

// fakeChangeReader serves canned change records.
type fakeChangeReader struct {
	mu       sync.Mutex
	changes  []domain.ChangeRecord
	lastType string
}

func (f *fakeChangeReader) Recent(
	_ context.Context,
	changeType string,
	limit, offset int,
) ([]domain.ChangeRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastType = changeType
	return f.changes, len(f.changes), nil
}

// fakeRunner records crawl triggers. Block makes runs hang until released.
type fakeRunner struct {
	mu      sync.Mutex
	started int
	release chan struct{}
}

func (f *fakeRunner) Run(context.Context) (*domain.RunSummary, error) {
	f.mu.Lock()
	f.started++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return &domain.RunSummary{State: domain.RunStateCompleted}, nil
}

func (f *fakeRunner) startedRuns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func testBook(id string) *domain.Book {
	return &domain.Book{
		ID:     id,
		Name:   id,
		Price:  domain.BookPrice{IncludingTax: 25.5, Currency: "£"},
		Rating: "Three",
	}
}

type testAPI struct {
	router  *gin.Engine
	books   *fakeBookReader
	changes *fakeChangeReader
	runner  *fakeRunner
}

func newTestAPI(t *testing.T, cfg api.Config) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	books := &fakeBookReader{books: map[string]*domain.Book{
		"book-1": testBook("book-1"),
		"book-2": testBook("book-2"),
	}}
	changes := &fakeChangeReader{changes: []domain.ChangeRecord{
		{RecordID: "book-1", ChangeType: domain.ChangeTypeUpdated},
	}}
	runner := &fakeRunner{}

	return &testAPI{
		router:  api.SetupRouter(logger.NewNoOp(), books, changes, runner, cfg),
		books:   books,
		changes: changes,
		runner:  runner,
	}
}

func (a *testAPI) do(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListBooksAppliesFilters(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet,
		"/api/v1/books?category=fiction&min_price=10&max_price=50&rating=3&sort=price&limit=5&offset=10",
		nil,
	)
	require.Equal(t, http.StatusOK, rec.Code)

	query := a.books.queried()
	assert.Equal(t, "fiction", query.Category)
	require.NotNil(t, query.MinPrice)
	assert.InDelta(t, 10.0, *query.MinPrice, 0.001)
	require.NotNil(t, query.MaxPrice)
	assert.InDelta(t, 50.0, *query.MaxPrice, 0.001)
	require.NotNil(t, query.Rating)
	assert.Equal(t, 3, *query.Rating)
	assert.Equal(t, "price", query.SortBy)
	assert.Equal(t, 5, query.Limit)
	assert.Equal(t, 10, query.Offset)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
}

func TestListBooksRejectsBadFilters(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodGet, "/api/v1/books?min_price=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodGet, "/api/v1/books?rating=high", nil).Code)
}

func TestListBooksCapsPageSize(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet, "/api/v1/books?limit=9999", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.MaxPageSize, a.books.queried().Limit)
}

func TestGetBook(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet, "/api/v1/books/book-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var book domain.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, "book-1", book.ID)
}

func TestGetBookNotFound(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet, "/api/v1/books/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChangesFiltersByType(t *testing.T) {
	a := newTestAPI(t, api.Config{})

	rec := a.do(http.MethodGet, "/api/v1/changes?type=updated", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "updated", a.changes.lastType)

	rec = a.do(http.MethodGet, "/api/v1/changes?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerCrawlRequiresAPIKey(t *testing.T) {
	a := newTestAPI(t, api.Config{APIKey: "secret"})

	rec := a.do(http.MethodPost, "/api/v1/crawl", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/crawl", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/crawl", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool { return a.runner.startedRuns() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestTriggerCrawlRejectsOverlap(t *testing.T) {
	a := newTestAPI(t, api.Config{})
	a.runner.release = make(chan struct{})

	rec := a.do(http.MethodPost, "/api/v1/crawl", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return a.runner.startedRuns() == 1 },
		time.Second, 10*time.Millisecond)

	rec = a.do(http.MethodPost, "/api/v1/crawl", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(a.runner.release)
}

func TestQueryEndpointsAreOpenWithoutKey(t *testing.T) {
	a := newTestAPI(t, api.Config{APIKey: "secret"})

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/books", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/changes", nil).Code)
}
