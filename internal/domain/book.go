// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// FetchStatus indicates the outcome of fetching a single record.
type FetchStatus string

const (
	// FetchStatusSuccess means the record was fetched and parsed.
	FetchStatusSuccess FetchStatus = "success"
	// FetchStatusFailed means the record could not be fetched or parsed.
	FetchStatusFailed FetchStatus = "failed"
)

// BookPrice holds the price components of a book.
type BookPrice struct {
	IncludingTax float64 `json:"including_tax" db:"price_including_tax"`
	ExcludingTax float64 `json:"excluding_tax" db:"price_excluding_tax"`
	Currency     string  `json:"currency" db:"price_currency"`
}

// Book represents one crawled book record.
type Book struct {
	ID                string      `json:"id" db:"id"`
	UPC               string      `json:"upc,omitempty" db:"upc"`
	Name              string      `json:"name" db:"name"`
	Description       string      `json:"description,omitempty" db:"description"`
	Category          string      `json:"category" db:"category"`
	Price             BookPrice   `json:"price"`
	Availability      string      `json:"availability" db:"availability"`
	AvailabilityCount int         `json:"availability_count" db:"availability_count"`
	NumReviews        int         `json:"num_reviews" db:"num_reviews"`
	Rating            string      `json:"rating,omitempty" db:"rating"`
	RatingNumeric     int         `json:"rating_numeric" db:"rating_numeric"`
	ImageURL          string      `json:"image_url,omitempty" db:"image_url"`
	Extra             JSONBMap    `json:"extra,omitempty" db:"extra"`
	ContentHash       string      `json:"content_hash" db:"content_hash"`
	FetchStatus       FetchStatus `json:"fetch_status" db:"fetch_status"`
	SourceURL         string      `json:"source_url" db:"source_url"`
	FetchedAt         time.Time   `json:"fetched_at" db:"fetched_at"`
}

// ratingValues maps the textual star rating to its numeric value.
var ratingValues = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// RatingValue converts a textual star rating to its numeric value.
// Returns 0 for unknown ratings.
func RatingValue(rating string) int {
	return ratingValues[rating]
}

// Attributes returns the business attributes of the book as a nested map.
// Volatile fields (fetch timestamp, source URL, fetch status) are excluded
// so the map is a pure function of the book's content. Both the content
// hash and the change detector operate on this exact attribute set.
func (b *Book) Attributes() map[string]any {
	attrs := map[string]any{
		"name":        b.Name,
		"description": b.Description,
		"category":    b.Category,
		"price": map[string]any{
			"including_tax": b.Price.IncludingTax,
			"excluding_tax": b.Price.ExcludingTax,
			"currency":      b.Price.Currency,
		},
		"availability":       b.Availability,
		"availability_count": b.AvailabilityCount,
		"num_reviews":        b.NumReviews,
		"rating":             b.Rating,
		"rating_numeric":     b.RatingNumeric,
		"image_url":          b.ImageURL,
	}

	for key, value := range b.Extra {
		attrs[key] = value
	}

	return attrs
}

// Snapshot is the complete mapping from book ID to record produced by one
// crawl run, or the previously stored state it is compared against.
type Snapshot map[string]*Book
