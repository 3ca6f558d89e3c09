package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// checkpointKey is the fixed primary key of the single checkpoint row.
const checkpointKey = "latest"

// CheckpointRepository handles database operations for crawl checkpoints.
type CheckpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository creates a new checkpoint repository.
func NewCheckpointRepository(db *sqlx.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Load retrieves the persisted checkpoint, or nil when none exists.
func (r *CheckpointRepository) Load(ctx context.Context) (*domain.CrawlCheckpoint, error) {
	var row struct {
		LastCompletedPage int            `db:"last_completed_page"`
		VisitedIDs        pq.StringArray `db:"visited_ids"`
		FailedIDs         pq.StringArray `db:"failed_ids"`
		UpdatedAt         time.Time      `db:"updated_at"`
	}

	query := `
		SELECT last_completed_page, visited_ids, failed_ids, updated_at
		FROM crawl_checkpoints
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &row, query, checkpointKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	return &domain.CrawlCheckpoint{
		LastCompletedPage: row.LastCompletedPage,
		VisitedIDs:        []string(row.VisitedIDs),
		FailedIDs:         []string(row.FailedIDs),
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

// Save durably replaces the checkpoint row.
func (r *CheckpointRepository) Save(ctx context.Context, checkpoint *domain.CrawlCheckpoint) error {
	query := `
		INSERT INTO crawl_checkpoints (id, last_completed_page, visited_ids, failed_ids, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			last_completed_page = EXCLUDED.last_completed_page,
			visited_ids = EXCLUDED.visited_ids,
			failed_ids = EXCLUDED.failed_ids,
			updated_at = now()
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		checkpointKey,
		checkpoint.LastCompletedPage,
		pq.Array(checkpoint.VisitedIDs),
		pq.Array(checkpoint.FailedIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// Clear removes the checkpoint row.
func (r *CheckpointRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(
		ctx,
		`DELETE FROM crawl_checkpoints WHERE id = $1`,
		checkpointKey,
	)
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	return nil
}
