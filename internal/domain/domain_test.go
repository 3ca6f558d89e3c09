package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/bookwatch/internal/domain"
)

func TestJSONBMapScanValue(t *testing.T) {
	original := domain.JSONBMap{
		"series": "unknown",
		"edition": map[string]any{
			"printing": float64(2),
		},
	}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned domain.JSONBMap
	require.NoError(t, scanned.Scan(value))

	assert.Equal(t, original, scanned)
}

func TestJSONBMapScanNil(t *testing.T) {
	var scanned domain.JSONBMap
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestJSONBMapValueEmpty(t *testing.T) {
	var empty domain.JSONBMap
	value, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)
}

func TestRunStateTransitions(t *testing.T) {
	tests := []struct {
		from    domain.RunState
		to      domain.RunState
		allowed bool
	}{
		{domain.RunStateStarting, domain.RunStatePaginating, true},
		{domain.RunStatePaginating, domain.RunStateDiffing, true},
		{domain.RunStateDiffing, domain.RunStateReporting, true},
		{domain.RunStateReporting, domain.RunStateCompleted, true},
		{domain.RunStatePaginating, domain.RunStateFailed, true},
		{domain.RunStatePaginating, domain.RunStateStarting, false},
		{domain.RunStateDiffing, domain.RunStatePaginating, false},
		{domain.RunStateCompleted, domain.RunStateFailed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestAttributesExcludeVolatileFields(t *testing.T) {
	book := &domain.Book{
		ID:        "some-book_1",
		Name:      "Some Book",
		SourceURL: "http://example.test/some-book_1/index.html",
	}

	attrs := book.Attributes()

	assert.NotContains(t, attrs, "source_url")
	assert.NotContains(t, attrs, "fetched_at")
	assert.NotContains(t, attrs, "fetch_status")
	assert.NotContains(t, attrs, "content_hash")
	assert.NotContains(t, attrs, "id")
}

func TestCheckpointVisitedSet(t *testing.T) {
	checkpoint := &domain.CrawlCheckpoint{
		LastCompletedPage: 2,
		VisitedIDs:        []string{"a_1", "b_2"},
	}

	visited := checkpoint.VisitedSet()

	assert.Contains(t, visited, "a_1")
	assert.Contains(t, visited, "b_2")
	assert.NotContains(t, visited, "c_3")
}
