// Package crawler composes fetching, parsing, pagination, and change
// detection into complete crawl runs.
package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/bookwatch/internal/diff"
	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/fetcher"
	"github.com/jonesrussell/bookwatch/internal/logger"
	"github.com/jonesrussell/bookwatch/internal/parser"
	"github.com/jonesrussell/bookwatch/internal/storage"
)

// Crawler orchestrates one crawl run at a time: pagination, diffing
// against the prior snapshot, and handing results to the store and the
// report sink.
type Crawler struct {
	controller *Controller
	detector   *diff.Detector
	store      storage.SnapshotStore
	sink       storage.ReportSink
	log        logger.Interface
	cfg        Config
}

// New creates a crawler from its collaborators.
func New(
	f *fetcher.Fetcher,
	p *parser.Parser,
	store storage.SnapshotStore,
	sink storage.ReportSink,
	log logger.Interface,
	cfg Config,
) *Crawler {
	cfg = cfg.withDefaults()

	return &Crawler{
		controller: NewController(f, p, store, log, cfg),
		detector:   diff.NewDetector(),
		store:      store,
		sink:       sink,
		log:        log.WithComponent("crawler"),
		cfg:        cfg,
	}
}

// Run executes one crawl run. It returns the run summary in both
// outcomes: Completed with statistics and the change list, or Failed
// with a reason. The checkpoint survives a failed run for safe resume.
func (c *Crawler) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		State:     domain.RunStateStarting,
		StartedAt: time.Now().UTC(),
	}
	log := c.log.With("run_id", summary.RunID)
	log.Info("crawl run starting", "resume", c.cfg.Resume)

	previous, loadErr := c.store.LoadSnapshot(ctx)
	if loadErr != nil {
		return c.fail(summary, log, loadErr)
	}

	checkpoint, checkpointErr := c.loadCheckpoint(ctx)
	if checkpointErr != nil {
		return c.fail(summary, log, checkpointErr)
	}

	c.transition(summary, log, domain.RunStatePaginating)

	result, crawlErr := c.controller.Crawl(ctx, checkpoint)
	if crawlErr != nil {
		return c.fail(summary, log, crawlErr)
	}

	c.transition(summary, log, domain.RunStateDiffing)

	failedIDs := make(map[string]struct{}, len(result.failed))
	for i := range result.failed {
		if id := result.failed[i].ID; id != "" {
			failedIDs[id] = struct{}{}
		}
	}
	// On resume, fetch failures from the interrupted run live in the
	// checkpoint; their pages are not revisited, so without this merge
	// those records would look deleted.
	if checkpoint != nil {
		for _, id := range checkpoint.FailedIDs {
			failedIDs[id] = struct{}{}
		}
	}

	current, carried := c.assembleSnapshot(previous, checkpoint, result, failedIDs)
	changes := c.detector.Detect(previous, current, failedIDs)

	c.transition(summary, log, domain.RunStateReporting)

	persisted := persistedSnapshot(previous, current, failedIDs)
	if saveErr := c.store.SaveSnapshot(ctx, persisted); saveErr != nil {
		return c.fail(summary, log, saveErr)
	}
	if appendErr := c.store.AppendChanges(ctx, changes); appendErr != nil {
		return c.fail(summary, log, appendErr)
	}
	if clearErr := c.store.ClearCheckpoint(ctx); clearErr != nil {
		return c.fail(summary, log, clearErr)
	}

	summary.PagesCrawled = result.pagesCrawled
	summary.Succeeded = len(result.records)
	summary.Failed = len(result.failed)
	summary.Skipped = result.skipped + carried
	summary.TotalRecords = summary.Succeeded + summary.Failed + summary.Skipped
	summary.Changes = changes
	summary.FailedRecords = result.failed

	if publishErr := c.sink.Publish(ctx, summary); publishErr != nil {
		// Reporting is best-effort; the run's results are already durable.
		log.Warn("report publish failed", "error", publishErr.Error())
	}

	c.transition(summary, log, domain.RunStateCompleted)
	summary.CompletedAt = time.Now().UTC()

	log.Info("crawl run completed",
		"pages", summary.PagesCrawled,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"new", summary.CountByType(domain.ChangeTypeNew),
		"updated", summary.CountByType(domain.ChangeTypeUpdated),
		"deleted", summary.CountByType(domain.ChangeTypeDeleted),
	)

	return summary, nil
}

// loadCheckpoint returns the persisted checkpoint in resume mode and nil
// otherwise.
func (c *Crawler) loadCheckpoint(ctx context.Context) (*domain.CrawlCheckpoint, error) {
	if !c.cfg.Resume {
		return nil, nil
	}
	return c.store.LoadCheckpoint(ctx)
}

// assembleSnapshot builds the current snapshot for diffing. Records
// visited by an interrupted run but not refetched after resume are
// carried forward from the prior snapshot so skipped pages do not show
// up as deletions. Returns the snapshot and the carried count.
func (c *Crawler) assembleSnapshot(
	previous domain.Snapshot,
	checkpoint *domain.CrawlCheckpoint,
	result *crawlResult,
	failedIDs map[string]struct{},
) (domain.Snapshot, int) {
	current := make(domain.Snapshot, len(result.records))
	for id, book := range result.records {
		current[id] = book
	}

	carried := 0
	if checkpoint == nil {
		return current, carried
	}

	for _, id := range checkpoint.VisitedIDs {
		if _, present := current[id]; present {
			continue
		}
		if _, failed := failedIDs[id]; failed {
			continue
		}
		if prior, existed := previous[id]; existed {
			current[id] = prior
			carried++
		}
	}

	return current, carried
}

// persistedSnapshot extends the current snapshot with the prior versions
// of records that failed this run, so a transient failure neither drops
// the record from the store nor resurfaces it as new when it recovers.
func persistedSnapshot(
	previous, current domain.Snapshot,
	failedIDs map[string]struct{},
) domain.Snapshot {
	persisted := make(domain.Snapshot, len(current)+len(failedIDs))
	for id, book := range current {
		persisted[id] = book
	}
	for id := range failedIDs {
		if _, present := persisted[id]; present {
			continue
		}
		if prior, existed := previous[id]; existed {
			persisted[id] = prior
		}
	}
	return persisted
}

// transition advances the run state machine, logging the edge.
func (c *Crawler) transition(
	summary *domain.RunSummary,
	log logger.Interface,
	next domain.RunState,
) {
	if !summary.State.CanTransitionTo(next) {
		log.Error("invalid run state transition",
			"from", string(summary.State),
			"to", string(next),
		)
		return
	}
	log.Debug("run state transition",
		"from", string(summary.State),
		"to", string(next),
	)
	summary.State = next
}

// fail marks the run failed, retaining the checkpoint for resume.
func (c *Crawler) fail(
	summary *domain.RunSummary,
	log logger.Interface,
	err error,
) (*domain.RunSummary, error) {
	summary.State = domain.RunStateFailed
	summary.FailureReason = err.Error()
	summary.CompletedAt = time.Now().UTC()

	log.Error("crawl run failed", "error", err.Error())

	if publishErr := c.sink.Publish(context.Background(), summary); publishErr != nil {
		log.Warn("failure report publish failed", "error", publishErr.Error())
	}

	return summary, err
}
