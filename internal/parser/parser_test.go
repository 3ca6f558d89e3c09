package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/parser"
	"github.com/jonesrussell/bookwatch/testutils"
)

const bookPageURL = "http://books.example.test/catalogue/a-light-in-the-attic_1000/index.html"

func fixtureBook() testutils.FixtureBook {
	return testutils.FixtureBook{
		Slug:              "a-light-in-the-attic_1000",
		Name:              "A Light in the Attic",
		Category:          "Poetry",
		Description:       "It's hard to imagine a world without A Light in the Attic.",
		PriceIncl:         51.77,
		PriceExcl:         51.77,
		AvailabilityCount: 22,
		NumReviews:        0,
		Rating:            "Three",
		UPC:               "a897fe39b1053632",
	}
}

func TestParseBook(t *testing.T) {
	body := []byte(testutils.BookPageHTML(fixtureBook()))

	book, err := parser.New().ParseBook(bookPageURL, body)

	require.NoError(t, err)
	assert.Equal(t, "a-light-in-the-attic_1000", book.ID)
	assert.Equal(t, "A Light in the Attic", book.Name)
	assert.Equal(t, "Poetry", book.Category)
	assert.Equal(t, "a897fe39b1053632", book.UPC)
	assert.InDelta(t, 51.77, book.Price.IncludingTax, 0.001)
	assert.InDelta(t, 51.77, book.Price.ExcludingTax, 0.001)
	assert.Equal(t, "£", book.Price.Currency)
	assert.Equal(t, "In stock (22 available)", book.Availability)
	assert.Equal(t, 22, book.AvailabilityCount)
	assert.Equal(t, "Three", book.Rating)
	assert.Equal(t, 3, book.RatingNumeric)
	assert.Contains(t, book.Description, "hard to imagine")
	assert.Equal(t, "http://books.example.test/media/cover.jpg", book.ImageURL)
	assert.Equal(t, bookPageURL, book.SourceURL)
	assert.Equal(t, domain.FetchStatusSuccess, book.FetchStatus)
	assert.NotEmpty(t, book.ContentHash)
	assert.False(t, book.FetchedAt.IsZero())
}

func TestParseBookContentHashIsStable(t *testing.T) {
	body := []byte(testutils.BookPageHTML(fixtureBook()))
	p := parser.New()

	first, err := p.ParseBook(bookPageURL, body)
	require.NoError(t, err)
	second, err := p.ParseBook(bookPageURL, body)
	require.NoError(t, err)

	// Fetch timestamps differ, but the content hash covers business
	// attributes only.
	assert.Equal(t, first.ContentHash, second.ContentHash)
}

func TestParseBookMissingName(t *testing.T) {
	body := []byte("<html><body><table class=\"table\">" +
		"<tr><th>Price (incl. tax)</th><td>£10.00</td></tr></table></body></html>")

	_, err := parser.New().ParseBook(bookPageURL, body)

	var validationErr *parser.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "name", validationErr.Field)
}

func TestParseBookMissingPrice(t *testing.T) {
	body := []byte("<html><body><div class=\"product_main\"><h1>No Price</h1></div></body></html>")

	_, err := parser.New().ParseBook(bookPageURL, body)

	var validationErr *parser.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "price.including_tax", validationErr.Field)
}

func TestParseBookMalformedPrice(t *testing.T) {
	body := []byte("<html><body><div class=\"product_main\"><h1>Bad Price</h1></div>" +
		"<table class=\"table\"><tr><th>Price (incl. tax)</th><td>not-a-price</td></tr></table>" +
		"</body></html>")

	_, err := parser.New().ParseBook(bookPageURL, body)

	var validationErr *parser.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "price.including_tax", validationErr.Field)
}

func TestParseCatalogue(t *testing.T) {
	body := []byte(testutils.CataloguePageHTML(
		[]string{"book-one_1", "book-two_2"},
		"page-2.html",
	))

	page, err := parser.New().ParseCatalogue("http://books.example.test/catalogue/page-1.html", body)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://books.example.test/catalogue/book-one_1/index.html",
		"http://books.example.test/catalogue/book-two_2/index.html",
	}, page.BookURLs)
	assert.Equal(t, "http://books.example.test/catalogue/page-2.html", page.NextURL)
}

func TestParseCatalogueLastPage(t *testing.T) {
	body := []byte(testutils.CataloguePageHTML([]string{"book-one_1"}, ""))

	page, err := parser.New().ParseCatalogue("http://books.example.test/catalogue/page-5.html", body)

	require.NoError(t, err)
	assert.Len(t, page.BookURLs, 1)
	assert.Empty(t, page.NextURL)
}

func TestParseCatalogueEmptyPage(t *testing.T) {
	page, err := parser.New().ParseCatalogue(
		"http://books.example.test/catalogue/page-9.html",
		[]byte("<html><body><p>no products</p></body></html>"),
	)

	require.NoError(t, err)
	assert.Empty(t, page.BookURLs)
	assert.Empty(t, page.NextURL)
}
