package crawler

import "fmt"

// DefaultMaxPages caps pagination when the source never stops linking to
// a next page.
const DefaultMaxPages = 100

// Config configures a crawl run.
type Config struct {
	// StartURL is the first catalogue page.
	StartURL string
	// PageURLTemplate is a fmt template with one %d verb producing the
	// catalogue URL for a given page ordinal. Used to begin fetching
	// past the checkpoint when resuming; page navigation otherwise
	// follows the catalogue's next link.
	PageURLTemplate string
	// MaxPages caps the number of catalogue pages processed in one run.
	MaxPages int
	// Resume makes the run honor a persisted checkpoint.
	Resume bool
}

// withDefaults fills unset fields with default values.
func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	return c
}

// pageURL returns the catalogue URL for the given page ordinal.
func (c Config) pageURL(page int) string {
	if page <= 1 || c.PageURLTemplate == "" {
		return c.StartURL
	}
	return fmt.Sprintf(c.PageURLTemplate, page)
}
