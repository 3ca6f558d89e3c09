// Package parser extracts structured book records from fetched HTML pages.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/bookwatch/internal/diff"
	"github.com/jonesrussell/bookwatch/internal/domain"
)

// Selectors for book detail pages.
const (
	titleSelector        = "div.product_main h1"
	descriptionSelector  = "#product_description ~ p"
	descriptionFallback  = "article.product_page > p"
	breadcrumbSelector   = "ul.breadcrumb li"
	infoTableSelector    = "table.table tr"
	availabilitySelector = "p.availability"
	ratingSelector       = "p.star-rating"
	imageSelector        = "div.item.active img"
)

// breadcrumbCategoryIndex is the position of the category entry in the
// breadcrumb trail (Home > Books > Category > Title).
const breadcrumbCategoryIndex = 2

// availableCountPattern extracts the stock count from availability text
// like "In stock (22 available)".
var availableCountPattern = regexp.MustCompile(`\((\d+) available\)`)

// Parser extracts book records from detail pages.
type Parser struct {
	now func() time.Time
}

// New creates a new parser.
func New() *Parser {
	return &Parser{now: time.Now}
}

// ParseBook extracts a book record from a detail page. It returns a
// ValidationError when a mandatory attribute (name, price) is missing or
// malformed. The returned record carries its content hash and a success
// fetch status.
func (p *Parser) ParseBook(pageURL string, body []byte) (*domain.Book, error) {
	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if docErr != nil {
		return nil, fmt.Errorf("parse html: %w", docErr)
	}

	name := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "missing title element"}
	}

	info := extractInfoTable(doc)

	price, priceErr := extractPrice(info)
	if priceErr != nil {
		return nil, priceErr
	}

	availability, availabilityCount := extractAvailability(doc)
	rating := extractRating(doc)

	book := &domain.Book{
		ID:                BookIDFromURL(pageURL),
		UPC:               info["UPC"],
		Name:              name,
		Description:       extractDescription(doc),
		Category:          extractCategory(doc),
		Price:             price,
		Availability:      availability,
		AvailabilityCount: availabilityCount,
		NumReviews:        parseIntOrZero(info["Number of reviews"]),
		Rating:            rating,
		RatingNumeric:     domain.RatingValue(rating),
		ImageURL:          extractImageURL(doc, pageURL),
		FetchStatus:       domain.FetchStatusSuccess,
		SourceURL:         pageURL,
		FetchedAt:         p.now().UTC(),
	}
	book.ContentHash = diff.ComputeHash(book.Attributes())

	return book, nil
}

// BookIDFromURL returns the stable identifier for a detail page URL: the
// slug path segment, e.g. "a-light-in-the-attic_1000" from
// ".../catalogue/a-light-in-the-attic_1000/index.html". The pagination
// controller uses it to dedup detail fetches before issuing them.
func BookIDFromURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" && !strings.HasSuffix(segments[i], ".html") {
			return segments[i]
		}
	}
	if len(segments) > 0 {
		return strings.TrimSuffix(segments[len(segments)-1], ".html")
	}
	return pageURL
}

// extractInfoTable collects the product information table into a map of
// header text to cell text.
func extractInfoTable(doc *goquery.Document) map[string]string {
	info := map[string]string{}
	doc.Find(infoTableSelector).Each(func(_ int, row *goquery.Selection) {
		header := strings.TrimSpace(row.Find("th").First().Text())
		value := strings.TrimSpace(row.Find("td").First().Text())
		if header != "" {
			info[header] = value
		}
	})
	return info
}

// extractPrice builds the price from the product information table.
// The including-tax price is mandatory.
func extractPrice(info map[string]string) (domain.BookPrice, error) {
	inclText, ok := info["Price (incl. tax)"]
	if !ok || inclText == "" {
		return domain.BookPrice{}, &ValidationError{
			Field:  "price.including_tax",
			Reason: "missing price row",
		}
	}

	currency, incl, inclErr := parsePrice(inclText)
	if inclErr != nil {
		return domain.BookPrice{}, &ValidationError{
			Field:  "price.including_tax",
			Reason: inclErr.Error(),
		}
	}

	price := domain.BookPrice{
		IncludingTax: incl,
		ExcludingTax: incl,
		Currency:     currency,
	}

	if exclText, exists := info["Price (excl. tax)"]; exists {
		if _, excl, exclErr := parsePrice(exclText); exclErr == nil {
			price.ExcludingTax = excl
		}
	}

	return price, nil
}

// parsePrice splits a price string like "£51.77" into its currency symbol
// and numeric value.
func parsePrice(text string) (currency string, value float64, err error) {
	text = strings.TrimSpace(text)
	trimmed := strings.TrimLeftFunc(text, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-'
	})

	currency = strings.TrimSpace(strings.TrimSuffix(text, trimmed))
	if currency == "" {
		currency = "£"
	}

	value, err = strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", ""), 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed price %q", text)
	}

	return currency, value, nil
}

// extractDescription returns the book description, empty when absent.
func extractDescription(doc *goquery.Document) string {
	if desc := strings.TrimSpace(doc.Find(descriptionSelector).First().Text()); desc != "" {
		return desc
	}
	return strings.TrimSpace(doc.Find(descriptionFallback).First().Text())
}

// extractCategory returns the category from the breadcrumb trail.
func extractCategory(doc *goquery.Document) string {
	crumbs := doc.Find(breadcrumbSelector)
	if crumbs.Length() <= breadcrumbCategoryIndex {
		return ""
	}
	return strings.TrimSpace(crumbs.Eq(breadcrumbCategoryIndex).Text())
}

// extractAvailability returns the availability text and parsed stock count.
func extractAvailability(doc *goquery.Document) (string, int) {
	text := strings.TrimSpace(doc.Find(availabilitySelector).First().Text())
	if text == "" {
		return "", 0
	}

	count := 0
	if match := availableCountPattern.FindStringSubmatch(text); match != nil {
		count = parseIntOrZero(match[1])
	}

	return text, count
}

// extractRating returns the textual star rating from the rating element's
// class list, empty when absent.
func extractRating(doc *goquery.Document) string {
	classes, exists := doc.Find(ratingSelector).First().Attr("class")
	if !exists {
		return ""
	}

	for _, class := range strings.Fields(classes) {
		if domain.RatingValue(class) > 0 {
			return class
		}
	}
	return ""
}

// extractImageURL returns the cover image URL resolved against the page URL.
func extractImageURL(doc *goquery.Document, pageURL string) string {
	src, exists := doc.Find(imageSelector).First().Attr("src")
	if !exists || src == "" {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	return resolveURL(base, src)
}

// parseIntOrZero parses a decimal integer, returning 0 on failure.
func parseIntOrZero(text string) int {
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return value
}
