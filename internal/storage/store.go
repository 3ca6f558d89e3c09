package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// Store combines the repositories into the SnapshotStore interface the
// crawl orchestrator depends on. Every error it returns is a StoreError,
// which is fatal to a run.
type Store struct {
	books       *BookRepository
	changes     *ChangeRepository
	checkpoints *CheckpointRepository
}

// Ensure Store implements SnapshotStore.
var _ SnapshotStore = (*Store)(nil)

// NewStore creates a store backed by the given database connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		books:       NewBookRepository(db),
		changes:     NewChangeRepository(db),
		checkpoints: NewCheckpointRepository(db),
	}
}

// Books exposes the book repository for the query API.
func (s *Store) Books() *BookRepository { return s.books }

// Changes exposes the change repository for the query API.
func (s *Store) Changes() *ChangeRepository { return s.changes }

// LoadSnapshot returns the previously stored snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	snapshot, err := s.books.All(ctx)
	return snapshot, storeErr("load snapshot", err)
}

// SaveSnapshot replaces the stored snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	return storeErr("save snapshot", s.books.ReplaceAll(ctx, snapshot))
}

// LoadCheckpoint returns the persisted checkpoint, or nil when none exists.
func (s *Store) LoadCheckpoint(ctx context.Context) (*domain.CrawlCheckpoint, error) {
	checkpoint, err := s.checkpoints.Load(ctx)
	return checkpoint, storeErr("load checkpoint", err)
}

// SaveCheckpoint durably replaces the checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint *domain.CrawlCheckpoint) error {
	return storeErr("save checkpoint", s.checkpoints.Save(ctx, checkpoint))
}

// ClearCheckpoint removes the checkpoint after a successful run.
func (s *Store) ClearCheckpoint(ctx context.Context) error {
	return storeErr("clear checkpoint", s.checkpoints.Clear(ctx))
}

// AppendChanges appends change records to the change history.
func (s *Store) AppendChanges(ctx context.Context, changes []domain.ChangeRecord) error {
	return storeErr("append changes", s.changes.Append(ctx, changes))
}
