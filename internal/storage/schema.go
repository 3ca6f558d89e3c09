package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates the tables and indexes used by the store.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id                  TEXT PRIMARY KEY,
		upc                 TEXT NOT NULL DEFAULT '',
		name                TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		category            TEXT NOT NULL DEFAULT '',
		price_including_tax DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_excluding_tax DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_currency      TEXT NOT NULL DEFAULT '£',
		availability        TEXT NOT NULL DEFAULT '',
		availability_count  INTEGER NOT NULL DEFAULT 0,
		num_reviews         INTEGER NOT NULL DEFAULT 0,
		rating              TEXT NOT NULL DEFAULT '',
		rating_numeric      INTEGER NOT NULL DEFAULT 0,
		image_url           TEXT NOT NULL DEFAULT '',
		extra               JSONB NOT NULL DEFAULT '{}',
		content_hash        TEXT NOT NULL,
		fetch_status        TEXT NOT NULL DEFAULT 'success',
		source_url          TEXT NOT NULL DEFAULT '',
		fetched_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books (category)`,
	`CREATE INDEX IF NOT EXISTS idx_books_price ON books (price_including_tax)`,
	`CREATE INDEX IF NOT EXISTS idx_books_rating ON books (rating_numeric DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_books_content_hash ON books (content_hash)`,
	`CREATE TABLE IF NOT EXISTS changes (
		id             BIGSERIAL PRIMARY KEY,
		record_id      TEXT NOT NULL,
		record_name    TEXT NOT NULL DEFAULT '',
		change_type    TEXT NOT NULL,
		changed_fields TEXT[] NOT NULL DEFAULT '{}',
		old_values     JSONB NOT NULL DEFAULT '{}',
		new_values     JSONB NOT NULL DEFAULT '{}',
		detected_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_record_id ON changes (record_id)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_detected_at ON changes (detected_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_changes_type ON changes (change_type)`,
	`CREATE TABLE IF NOT EXISTS crawl_checkpoints (
		id                  TEXT PRIMARY KEY,
		last_completed_page INTEGER NOT NULL,
		visited_ids         TEXT[] NOT NULL DEFAULT '{}',
		failed_ids          TEXT[] NOT NULL DEFAULT '{}',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema to the database.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
