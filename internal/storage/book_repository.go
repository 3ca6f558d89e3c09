package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// Sort keys accepted by Query.
const (
	SortByName    = "name"
	SortByPrice   = "price"
	SortByRating  = "rating"
	SortByReviews = "reviews"
)

// sortClauses maps sort keys to ORDER BY clauses.
var sortClauses = map[string]string{
	SortByName:    "name ASC",
	SortByPrice:   "price_including_tax ASC",
	SortByRating:  "rating_numeric DESC",
	SortByReviews: "num_reviews DESC",
}

// BookQuery describes filters for listing books.
type BookQuery struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Rating   *int
	SortBy   string
	Limit    int
	Offset   int
}

// BookRepository handles database operations for book records.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// bookRow is the flat row representation of a book.
type bookRow struct {
	ID                string          `db:"id"`
	UPC               string          `db:"upc"`
	Name              string          `db:"name"`
	Description       string          `db:"description"`
	Category          string          `db:"category"`
	PriceIncludingTax float64         `db:"price_including_tax"`
	PriceExcludingTax float64         `db:"price_excluding_tax"`
	PriceCurrency     string          `db:"price_currency"`
	Availability      string          `db:"availability"`
	AvailabilityCount int             `db:"availability_count"`
	NumReviews        int             `db:"num_reviews"`
	Rating            string          `db:"rating"`
	RatingNumeric     int             `db:"rating_numeric"`
	ImageURL          string          `db:"image_url"`
	Extra             domain.JSONBMap `db:"extra"`
	ContentHash       string          `db:"content_hash"`
	FetchStatus       string          `db:"fetch_status"`
	SourceURL         string          `db:"source_url"`
	FetchedAt         time.Time       `db:"fetched_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

const bookColumns = `id, upc, name, description, category,
	price_including_tax, price_excluding_tax, price_currency,
	availability, availability_count, num_reviews, rating, rating_numeric,
	image_url, extra, content_hash, fetch_status, source_url, fetched_at, updated_at`

// toBook converts a row to the domain model.
func (r bookRow) toBook() *domain.Book {
	return &domain.Book{
		ID:          r.ID,
		UPC:         r.UPC,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price: domain.BookPrice{
			IncludingTax: r.PriceIncludingTax,
			ExcludingTax: r.PriceExcludingTax,
			Currency:     r.PriceCurrency,
		},
		Availability:      r.Availability,
		AvailabilityCount: r.AvailabilityCount,
		NumReviews:        r.NumReviews,
		Rating:            r.Rating,
		RatingNumeric:     r.RatingNumeric,
		ImageURL:          r.ImageURL,
		Extra:             r.Extra,
		ContentHash:       r.ContentHash,
		FetchStatus:       domain.FetchStatus(r.FetchStatus),
		SourceURL:         r.SourceURL,
		FetchedAt:         r.FetchedAt,
	}
}

// GetByID retrieves a single book by its ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	var row bookRow
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return row.toBook(), nil
}

// All retrieves every stored book keyed by ID.
func (r *BookRepository) All(ctx context.Context) (domain.Snapshot, error) {
	var rows []bookRow
	query := `SELECT ` + bookColumns + ` FROM books`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	snapshot := make(domain.Snapshot, len(rows))
	for i := range rows {
		snapshot[rows[i].ID] = rows[i].toBook()
	}

	return snapshot, nil
}

// Query retrieves books matching the given filters along with the total
// match count before pagination.
func (r *BookRepository) Query(ctx context.Context, q BookQuery) ([]*domain.Book, int, error) {
	where := "WHERE 1=1"
	args := []any{}

	if q.Category != "" {
		args = append(args, "%"+q.Category+"%")
		where += fmt.Sprintf(" AND category ILIKE $%d", len(args))
	}
	if q.MinPrice != nil {
		args = append(args, *q.MinPrice)
		where += fmt.Sprintf(" AND price_including_tax >= $%d", len(args))
	}
	if q.MaxPrice != nil {
		args = append(args, *q.MaxPrice)
		where += fmt.Sprintf(" AND price_including_tax <= $%d", len(args))
	}
	if q.Rating != nil {
		args = append(args, *q.Rating)
		where += fmt.Sprintf(" AND rating_numeric = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM books " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	orderBy, ok := sortClauses[q.SortBy]
	if !ok {
		orderBy = sortClauses[SortByName]
	}

	args = append(args, q.Limit, q.Offset)
	listQuery := fmt.Sprintf(
		"SELECT %s FROM books %s ORDER BY %s LIMIT $%d OFFSET $%d",
		bookColumns, where, orderBy, len(args)-1, len(args),
	)

	var rows []bookRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query books: %w", err)
	}

	books := make([]*domain.Book, 0, len(rows))
	for i := range rows {
		books = append(books, rows[i].toBook())
	}

	return books, total, nil
}

// ReplaceAll replaces the stored book set with the given snapshot inside
// a single transaction: every record is upserted and rows absent from the
// snapshot are deleted.
func (r *BookRepository) ReplaceAll(ctx context.Context, snapshot domain.Snapshot) error {
	tx, txErr := r.db.BeginTxx(ctx, nil)
	if txErr != nil {
		return fmt.Errorf("failed to begin transaction: %w", txErr)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (:id, :upc, :name, :description, :category,
			:price_including_tax, :price_excluding_tax, :price_currency,
			:availability, :availability_count, :num_reviews, :rating, :rating_numeric,
			:image_url, :extra, :content_hash, :fetch_status, :source_url, :fetched_at, now())
		ON CONFLICT (id) DO UPDATE SET
			upc = EXCLUDED.upc,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price_including_tax = EXCLUDED.price_including_tax,
			price_excluding_tax = EXCLUDED.price_excluding_tax,
			price_currency = EXCLUDED.price_currency,
			availability = EXCLUDED.availability,
			availability_count = EXCLUDED.availability_count,
			num_reviews = EXCLUDED.num_reviews,
			rating = EXCLUDED.rating,
			rating_numeric = EXCLUDED.rating_numeric,
			image_url = EXCLUDED.image_url,
			extra = EXCLUDED.extra,
			content_hash = EXCLUDED.content_hash,
			fetch_status = EXCLUDED.fetch_status,
			source_url = EXCLUDED.source_url,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = now()
	`

	ids := make([]string, 0, len(snapshot))
	for id, book := range snapshot {
		ids = append(ids, id)

		row := bookRow{
			ID:                book.ID,
			UPC:               book.UPC,
			Name:              book.Name,
			Description:       book.Description,
			Category:          book.Category,
			PriceIncludingTax: book.Price.IncludingTax,
			PriceExcludingTax: book.Price.ExcludingTax,
			PriceCurrency:     book.Price.Currency,
			Availability:      book.Availability,
			AvailabilityCount: book.AvailabilityCount,
			NumReviews:        book.NumReviews,
			Rating:            book.Rating,
			RatingNumeric:     book.RatingNumeric,
			ImageURL:          book.ImageURL,
			Extra:             book.Extra,
			ContentHash:       book.ContentHash,
			FetchStatus:       string(book.FetchStatus),
			SourceURL:         book.SourceURL,
			FetchedAt:         book.FetchedAt,
		}
		if row.Extra == nil {
			row.Extra = domain.JSONBMap{}
		}

		if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
			return fmt.Errorf("failed to upsert book %s: %w", book.ID, err)
		}
	}

	deleteQuery, deleteArgs, inErr := sqlx.In(
		"DELETE FROM books WHERE id NOT IN (?)", ids,
	)
	if len(ids) == 0 {
		deleteQuery, deleteArgs, inErr = "DELETE FROM books", nil, nil
	}
	if inErr != nil {
		return fmt.Errorf("failed to build delete query: %w", inErr)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteQuery), deleteArgs...); err != nil {
		return fmt.Errorf("failed to delete stale books: %w", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit snapshot: %w", commitErr)
	}

	return nil
}
