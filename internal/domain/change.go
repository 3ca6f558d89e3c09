package domain

import "time"

// ChangeType classifies the outcome of diffing one record between two
// snapshots. The three values are mutually exclusive for a given ID.
type ChangeType string

const (
	// ChangeTypeNew means the record appeared in the current snapshot only.
	ChangeTypeNew ChangeType = "new"
	// ChangeTypeUpdated means the record exists in both snapshots with
	// differing content.
	ChangeTypeUpdated ChangeType = "updated"
	// ChangeTypeDeleted means the record disappeared from the current snapshot.
	ChangeTypeDeleted ChangeType = "deleted"
)

// ChangeRecord is the output of diffing one record against its prior snapshot.
type ChangeRecord struct {
	RecordID      string     `json:"record_id" db:"record_id"`
	RecordName    string     `json:"record_name" db:"record_name"`
	ChangeType    ChangeType `json:"change_type" db:"change_type"`
	ChangedFields []string   `json:"changed_fields" db:"-"`
	OldValues     JSONBMap   `json:"old_values,omitempty" db:"old_values"`
	NewValues     JSONBMap   `json:"new_values,omitempty" db:"new_values"`
	DetectedAt    time.Time  `json:"detected_at" db:"detected_at"`
}
