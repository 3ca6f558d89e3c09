// Package storage provides durable persistence for snapshots, change
// records, and crawl checkpoints.
package storage

import (
	"context"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// SnapshotStore is the narrow persistence interface the crawl orchestrator
// depends on. Implementations must make each call durable and atomic.
type SnapshotStore interface {
	// LoadSnapshot returns the previously stored snapshot, empty when no
	// crawl has completed yet.
	LoadSnapshot(ctx context.Context) (domain.Snapshot, error)
	// SaveSnapshot replaces the stored snapshot with the given one.
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
	// LoadCheckpoint returns the persisted checkpoint, or nil when none
	// exists.
	LoadCheckpoint(ctx context.Context) (*domain.CrawlCheckpoint, error)
	// SaveCheckpoint durably replaces the checkpoint.
	SaveCheckpoint(ctx context.Context, checkpoint *domain.CrawlCheckpoint) error
	// ClearCheckpoint removes the checkpoint after a successful run.
	ClearCheckpoint(ctx context.Context) error
	// AppendChanges appends change records to the change history.
	AppendChanges(ctx context.Context, changes []domain.ChangeRecord) error
}

// ReportSink consumes a completed run's summary.
type ReportSink interface {
	Publish(ctx context.Context, summary *domain.RunSummary) error
}
