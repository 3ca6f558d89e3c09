package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// ChangeRepository handles database operations for change records.
type ChangeRepository struct {
	db *sqlx.DB
}

// NewChangeRepository creates a new change repository.
func NewChangeRepository(db *sqlx.DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// changeRow is the flat row representation of a change record.
type changeRow struct {
	ID            int64           `db:"id"`
	RecordID      string          `db:"record_id"`
	RecordName    string          `db:"record_name"`
	ChangeType    string          `db:"change_type"`
	ChangedFields pq.StringArray  `db:"changed_fields"`
	OldValues     domain.JSONBMap `db:"old_values"`
	NewValues     domain.JSONBMap `db:"new_values"`
	DetectedAt    time.Time       `db:"detected_at"`
}

// toChange converts a row to the domain model.
func (r changeRow) toChange() domain.ChangeRecord {
	return domain.ChangeRecord{
		RecordID:      r.RecordID,
		RecordName:    r.RecordName,
		ChangeType:    domain.ChangeType(r.ChangeType),
		ChangedFields: []string(r.ChangedFields),
		OldValues:     r.OldValues,
		NewValues:     r.NewValues,
		DetectedAt:    r.DetectedAt,
	}
}

// Append inserts change records in a single transaction.
func (r *ChangeRepository) Append(ctx context.Context, changes []domain.ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}

	tx, txErr := r.db.BeginTxx(ctx, nil)
	if txErr != nil {
		return fmt.Errorf("failed to begin transaction: %w", txErr)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO changes (record_id, record_name, change_type, changed_fields,
			old_values, new_values, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range changes {
		change := &changes[i]

		oldValues := change.OldValues
		if oldValues == nil {
			oldValues = domain.JSONBMap{}
		}
		newValues := change.NewValues
		if newValues == nil {
			newValues = domain.JSONBMap{}
		}

		_, err := tx.ExecContext(
			ctx,
			query,
			change.RecordID,
			change.RecordName,
			string(change.ChangeType),
			pq.Array(change.ChangedFields),
			oldValues,
			newValues,
			change.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert change for %s: %w", change.RecordID, err)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit changes: %w", commitErr)
	}

	return nil
}

// Recent retrieves change records ordered by detection time descending,
// along with the total count.
func (r *ChangeRepository) Recent(
	ctx context.Context,
	changeType string,
	limit, offset int,
) ([]domain.ChangeRecord, int, error) {
	where := ""
	args := []any{}
	if changeType != "" {
		where = "WHERE change_type = $1"
		args = append(args, changeType)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM changes " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count changes: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
		SELECT id, record_id, record_name, change_type, changed_fields,
			old_values, new_values, detected_at
		FROM changes %s
		ORDER BY detected_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	var rows []changeRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list changes: %w", err)
	}

	changes := make([]domain.ChangeRecord, 0, len(rows))
	for i := range rows {
		changes = append(changes, rows[i].toChange())
	}

	return changes, total, nil
}
