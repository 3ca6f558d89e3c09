package parser

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// CataloguePage holds the result of parsing one catalogue listing page.
type CataloguePage struct {
	// BookURLs are the absolute URLs of the detail pages listed on the page.
	BookURLs []string
	// NextURL is the absolute URL of the next catalogue page, or empty
	// when this is the last page.
	NextURL string
}

// Selectors for catalogue listing pages.
const (
	productLinkSelector = "article.product_pod h3 a"
	nextPageSelector    = "ul.pager li.next a"
)

// ParseCatalogue extracts detail page links and the next-page link from a
// catalogue listing page. Relative hrefs are resolved against pageURL.
func (p *Parser) ParseCatalogue(pageURL string, body []byte) (*CataloguePage, error) {
	base, baseErr := url.Parse(pageURL)
	if baseErr != nil {
		return nil, fmt.Errorf("parse page url: %w", baseErr)
	}

	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if docErr != nil {
		return nil, fmt.Errorf("parse html: %w", docErr)
	}

	page := &CataloguePage{}

	doc.Find(productLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || href == "" {
			return
		}
		if resolved := resolveURL(base, href); resolved != "" {
			page.BookURLs = append(page.BookURLs, resolved)
		}
	})

	if href, exists := doc.Find(nextPageSelector).First().Attr("href"); exists {
		page.NextURL = resolveURL(base, href)
	}

	return page, nil
}

// resolveURL resolves href against base, returning an empty string for
// unparseable hrefs.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
