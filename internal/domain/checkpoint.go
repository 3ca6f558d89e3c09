package domain

import "time"

// CrawlCheckpoint records pagination progress so an interrupted run can
// resume without reprocessing completed pages. FailedIDs carries the
// records whose detail fetch failed on a completed page, so a resumed run
// still knows not to treat them as deleted.
type CrawlCheckpoint struct {
	LastCompletedPage int       `json:"last_completed_page" db:"last_completed_page"`
	VisitedIDs        []string  `json:"visited_ids" db:"-"`
	FailedIDs         []string  `json:"failed_ids" db:"-"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// VisitedSet returns the visited IDs as a set for O(1) membership checks.
func (c *CrawlCheckpoint) VisitedSet() map[string]struct{} {
	return idSet(c.VisitedIDs)
}

// FailedSet returns the failed IDs as a set for O(1) membership checks.
func (c *CrawlCheckpoint) FailedSet() map[string]struct{} {
	return idSet(c.FailedIDs)
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
