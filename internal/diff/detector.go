package diff

import (
	"sort"
	"time"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

// Detector compares a freshly crawled snapshot against the previously
// stored one and classifies every record as new, updated, or deleted.
type Detector struct {
	now func() time.Time
}

// NewDetector creates a new change detector.
func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// Detect diffs two snapshots and returns the change list sorted by record
// ID so output is reproducible for a given pair of snapshots.
//
// Records whose IDs appear in failedIDs were not successfully fetched in
// the current run. They are excluded from deletion detection so a
// transient fetch failure is never misreported as a deletion.
func (d *Detector) Detect(
	previous, current domain.Snapshot,
	failedIDs map[string]struct{},
) []domain.ChangeRecord {
	detectedAt := d.now().UTC()
	changes := make([]domain.ChangeRecord, 0)

	for _, id := range sortedIDs(current) {
		book := current[id]
		prior, existed := previous[id]

		if !existed {
			changes = append(changes, domain.ChangeRecord{
				RecordID:      id,
				RecordName:    book.Name,
				ChangeType:    domain.ChangeTypeNew,
				ChangedFields: []string{},
				NewValues:     Flatten(book.Attributes()),
				DetectedAt:    detectedAt,
			})
			continue
		}

		// Equal hashes mean identical attributes; skip the field walk.
		if prior.ContentHash == book.ContentHash {
			continue
		}

		if change, changed := d.compareRecords(prior, book, detectedAt); changed {
			changes = append(changes, change)
		}
	}

	for _, id := range sortedIDs(previous) {
		if _, present := current[id]; present {
			continue
		}
		if _, failed := failedIDs[id]; failed {
			continue
		}

		prior := previous[id]
		changes = append(changes, domain.ChangeRecord{
			RecordID:      id,
			RecordName:    prior.Name,
			ChangeType:    domain.ChangeTypeDeleted,
			ChangedFields: []string{},
			OldValues:     Flatten(prior.Attributes()),
			DetectedAt:    detectedAt,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].RecordID < changes[j].RecordID
	})

	return changes
}

// compareRecords walks both attribute sets and collects every path whose
// value differs. Returns false when no field-level difference is found.
func (d *Detector) compareRecords(
	prior, current *domain.Book,
	detectedAt time.Time,
) (domain.ChangeRecord, bool) {
	oldFlat := Flatten(prior.Attributes())
	newFlat := Flatten(current.Attributes())

	changedFields := make([]string, 0)
	oldValues := domain.JSONBMap{}
	newValues := domain.JSONBMap{}

	for _, path := range unionPaths(oldFlat, newFlat) {
		oldValue, inOld := oldFlat[path]
		newValue, inNew := newFlat[path]

		if inOld && inNew && canonicalValue(oldValue) == canonicalValue(newValue) {
			continue
		}

		changedFields = append(changedFields, path)
		if inOld {
			oldValues[path] = oldValue
		}
		if inNew {
			newValues[path] = newValue
		}
	}

	if len(changedFields) == 0 {
		return domain.ChangeRecord{}, false
	}

	return domain.ChangeRecord{
		RecordID:      current.ID,
		RecordName:    current.Name,
		ChangeType:    domain.ChangeTypeUpdated,
		ChangedFields: changedFields,
		OldValues:     oldValues,
		NewValues:     newValues,
		DetectedAt:    detectedAt,
	}, true
}

// Flatten converts a nested attribute map into a flat map keyed by
// dot-separated paths, e.g. {"price": {"including_tax": 1.5}} becomes
// {"price.including_tax": 1.5}.
func Flatten(attributes map[string]any) domain.JSONBMap {
	flat := domain.JSONBMap{}
	flattenInto(flat, "", attributes)
	return flat
}

func flattenInto(flat domain.JSONBMap, prefix string, value map[string]any) {
	for key, v := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch nested := v.(type) {
		case map[string]any:
			flattenInto(flat, path, nested)
		case domain.JSONBMap:
			flattenInto(flat, path, nested)
		default:
			flat[path] = v
		}
	}
}

// unionPaths returns the sorted union of the keys of both flat maps.
func unionPaths(a, b domain.JSONBMap) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for path := range a {
		seen[path] = struct{}{}
	}
	for path := range b {
		seen[path] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths
}

// sortedIDs returns the snapshot's record IDs in ascending order.
func sortedIDs(s domain.Snapshot) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
