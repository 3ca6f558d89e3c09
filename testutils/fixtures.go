// Package testutils provides fixture builders shared across tests.
package testutils

import (
	"fmt"
	"strings"
)

// FixtureBook describes a book rendered into fixture HTML pages.
type FixtureBook struct {
	Slug              string
	Name              string
	Category          string
	Description       string
	PriceIncl         float64
	PriceExcl         float64
	Availability      string
	AvailabilityCount int
	NumReviews        int
	Rating            string
	UPC               string
}

// BookPageHTML renders a book detail page in the source site's markup.
func BookPageHTML(book FixtureBook) string {
	availability := book.Availability
	if availability == "" {
		availability = fmt.Sprintf("In stock (%d available)", book.AvailabilityCount)
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<ul class=\"breadcrumb\">")
	b.WriteString("<li><a href=\"/\">Home</a></li>")
	b.WriteString("<li><a href=\"/books\">Books</a></li>")
	fmt.Fprintf(&b, "<li><a href=\"/cat\">%s</a></li>", book.Category)
	fmt.Fprintf(&b, "<li>%s</li>", book.Name)
	b.WriteString("</ul>")
	b.WriteString("<article class=\"product_page\">")
	b.WriteString("<div class=\"product_main\">")
	fmt.Fprintf(&b, "<h1>%s</h1>", book.Name)
	fmt.Fprintf(&b, "<p class=\"star-rating %s\"></p>", book.Rating)
	fmt.Fprintf(&b, "<p class=\"availability\">%s</p>", availability)
	b.WriteString("</div>")
	b.WriteString("<div class=\"item active\"><img src=\"../../media/cover.jpg\"/></div>")
	if book.Description != "" {
		b.WriteString("<div id=\"product_description\"><h2>Product Description</h2></div>")
		fmt.Fprintf(&b, "<p>%s</p>", book.Description)
	}
	b.WriteString("<table class=\"table\">")
	fmt.Fprintf(&b, "<tr><th>UPC</th><td>%s</td></tr>", book.UPC)
	fmt.Fprintf(&b, "<tr><th>Price (excl. tax)</th><td>£%.2f</td></tr>", book.PriceExcl)
	fmt.Fprintf(&b, "<tr><th>Price (incl. tax)</th><td>£%.2f</td></tr>", book.PriceIncl)
	fmt.Fprintf(&b, "<tr><th>Availability</th><td>%s</td></tr>", availability)
	fmt.Fprintf(&b, "<tr><th>Number of reviews</th><td>%d</td></tr>", book.NumReviews)
	b.WriteString("</table>")
	b.WriteString("</article>")
	b.WriteString("</body></html>")

	return b.String()
}

// CataloguePageHTML renders a catalogue listing page linking to the given
// book slugs. nextHref is included as the next-page link when non-empty.
func CataloguePageHTML(slugs []string, nextHref string) string {
	var b strings.Builder
	b.WriteString("<html><body><section>")
	for _, slug := range slugs {
		b.WriteString("<article class=\"product_pod\">")
		fmt.Fprintf(&b, "<h3><a href=\"/catalogue/%s/index.html\">%s</a></h3>", slug, slug)
		b.WriteString("</article>")
	}
	b.WriteString("</section>")
	if nextHref != "" {
		fmt.Fprintf(&b, "<ul class=\"pager\"><li class=\"next\"><a href=%q>next</a></li></ul>", nextHref)
	}
	b.WriteString("</body></html>")

	return b.String()
}
