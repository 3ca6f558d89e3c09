package crawler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/fetcher"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/parser"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// Controller drives the crawl across catalogue pages, fanning out detail
// fetches and maintaining the durable checkpoint. It is the only writer
// of the in-run record set; workers hand results back over a channel.
type Controller struct {
	fetcher *fetcher.Fetcher
	parser  *parser.Parser
	store   storage.SnapshotStore
	log     logger.Interface
	cfg     Config
}

// NewController creates a pagination controller.
func NewController(
	f *fetcher.Fetcher,
	p *parser.Parser,
	store storage.SnapshotStore,
	log logger.Interface,
	cfg Config,
) *Controller {
	return &Controller{
		fetcher: f,
		parser:  p,
		store:   store,
		log:     log.WithComponent("controller"),
		cfg:     cfg.withDefaults(),
	}
}

// crawlResult is the outcome of paginating the whole source.
type crawlResult struct {
	records      domain.Snapshot
	failed       []domain.FailedRecord
	pagesCrawled int
	skipped      int
}

// detailOutcome is one detail fetch handed back by a worker.
type detailOutcome struct {
	book   *domain.Book
	failed *domain.FailedRecord
}

// Crawl processes catalogue pages starting after the checkpoint (when
// resuming) until the source reports no next page or the page cap is hit.
// The checkpoint is durably saved after every completed page, before the
// controller advances, so a crash never loses a completed page. A
// catalogue page that cannot be fetched fails the whole crawl; completed
// pages stay checkpointed for resume.
func (c *Controller) Crawl(
	ctx context.Context,
	checkpoint *domain.CrawlCheckpoint,
) (*crawlResult, error) {
	if checkpoint == nil {
		checkpoint = &domain.CrawlCheckpoint{}
	}
	visited := checkpoint.VisitedSet()
	failedSet := checkpoint.FailedSet()

	result := &crawlResult{records: domain.Snapshot{}}

	page := checkpoint.LastCompletedPage + 1
	pageURL := c.cfg.pageURL(page)
	if checkpoint.LastCompletedPage > 0 {
		c.log.Info("resuming crawl",
			"last_completed_page", checkpoint.LastCompletedPage,
			"next_page", page,
		)
	}

	for pageURL != "" && page <= c.cfg.MaxPages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		c.log.Info("fetching catalogue page", "page", page, "url", pageURL)

		body, fetchErr := c.fetcher.Fetch(ctx, pageURL)
		if fetchErr != nil {
			if result.pagesCrawled == 0 && checkpoint.LastCompletedPage == 0 {
				return nil, &UnrecoverableSourceError{URL: pageURL, Err: fetchErr}
			}
			// An unfetchable catalogue page means the snapshot would be
			// truncated and every book on the unreached pages would look
			// deleted. Fail the run instead; the checkpoint already covers
			// the completed pages.
			return nil, fmt.Errorf("fetch catalogue page %d: %w", page, fetchErr)
		}

		cataloguePage, parseErr := c.parser.ParseCatalogue(pageURL, body)
		if parseErr != nil {
			return nil, fmt.Errorf("parse catalogue page %d: %w", page, parseErr)
		}

		c.processPage(ctx, page, cataloguePage.BookURLs, visited, failedSet, result)

		checkpoint.LastCompletedPage = page
		checkpoint.VisitedIDs = setToSlice(visited)
		checkpoint.FailedIDs = setToSlice(failedSet)
		if saveErr := c.store.SaveCheckpoint(ctx, checkpoint); saveErr != nil {
			return nil, saveErr
		}

		result.pagesCrawled++
		page++
		pageURL = cataloguePage.NextURL
		if len(cataloguePage.BookURLs) == 0 {
			c.log.Info("no books on page, stopping pagination", "page", page-1)
			break
		}
	}

	return result, nil
}

// processPage fans out detail fetches for one catalogue page, bounded by
// the fetcher's shared concurrency limit, and folds outcomes into the
// result set. Only this goroutine mutates result and visited.
func (c *Controller) processPage(
	ctx context.Context,
	page int,
	bookURLs []string,
	visited map[string]struct{},
	failedSet map[string]struct{},
	result *crawlResult,
) {
	pending := make([]string, 0, len(bookURLs))
	for _, bookURL := range bookURLs {
		id := parser.BookIDFromURL(bookURL)
		if _, seen := visited[id]; seen {
			result.skipped++
			continue
		}
		if _, seen := result.records[id]; seen {
			result.skipped++
			continue
		}
		pending = append(pending, bookURL)
	}

	outcomes := make(chan detailOutcome, len(pending))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, bookURL := range pending {
		bookURL := bookURL
		group.Go(func() error {
			outcomes <- c.fetchDetail(groupCtx, page, bookURL)
			return nil
		})
	}
	// Workers only report outcomes, they never fail the group.
	_ = group.Wait()
	close(outcomes)

	for outcome := range outcomes {
		if outcome.failed != nil {
			result.failed = append(result.failed, *outcome.failed)
			if outcome.failed.ID != "" {
				failedSet[outcome.failed.ID] = struct{}{}
			}
			continue
		}
		result.records[outcome.book.ID] = outcome.book
		visited[outcome.book.ID] = struct{}{}
		delete(failedSet, outcome.book.ID)
	}
}

// fetchDetail retrieves and parses one detail page. Failures become data,
// not errors: the record is reported failed and the run continues.
func (c *Controller) fetchDetail(ctx context.Context, page int, bookURL string) detailOutcome {
	body, fetchErr := c.fetcher.Fetch(ctx, bookURL)
	if fetchErr != nil {
		return detailOutcome{failed: failedRecord(page, bookURL, fetchErr)}
	}

	book, parseErr := c.parser.ParseBook(bookURL, body)
	if parseErr != nil {
		return detailOutcome{failed: failedRecord(page, bookURL, parseErr)}
	}

	return detailOutcome{book: book}
}

// failedRecord builds the failure report for one unfetchable record.
func failedRecord(page int, bookURL string, err error) *domain.FailedRecord {
	record := &domain.FailedRecord{
		ID:     parser.BookIDFromURL(bookURL),
		URL:    bookURL,
		Page:   page,
		Reason: err.Error(),
	}

	var transient *fetcher.TransientError
	if errors.As(err, &transient) {
		record.Attempts = transient.Attempts
	}

	return record
}

// setToSlice converts a string set to a slice for persistence.
func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}
