package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/bookwatch/internal/diff"
)

func TestComputeHashDeterminism(t *testing.T) {
	attrs := map[string]any{
		"name":         "A Light in the Attic",
		"availability": "In stock (22 available)",
		"price": map[string]any{
			"including_tax": 51.77,
			"excluding_tax": 51.77,
			"currency":      "£",
		},
	}

	assert.Equal(t, diff.ComputeHash(attrs), diff.ComputeHash(attrs))
}

func TestComputeHashKeyOrderIndependence(t *testing.T) {
	// Go map iteration order is randomized, so building the same logical
	// map twice with different insertion orders exercises canonicalization.
	first := map[string]any{}
	first["name"] = "Sharp Objects"
	first["rating"] = "Four"
	first["price"] = map[string]any{"including_tax": 47.82, "excluding_tax": 47.82}

	second := map[string]any{}
	second["price"] = map[string]any{"excluding_tax": 47.82, "including_tax": 47.82}
	second["rating"] = "Four"
	second["name"] = "Sharp Objects"

	assert.Equal(t, diff.ComputeHash(first), diff.ComputeHash(second))
}

func TestComputeHashSensitivity(t *testing.T) {
	tests := []struct {
		name  string
		base  map[string]any
		other map[string]any
	}{
		{
			name:  "different scalar",
			base:  map[string]any{"name": "Soumission", "rating": "One"},
			other: map[string]any{"name": "Soumission", "rating": "Two"},
		},
		{
			name:  "different nested value",
			base:  map[string]any{"price": map[string]any{"including_tax": 50.10}},
			other: map[string]any{"price": map[string]any{"including_tax": 45.99}},
		},
		{
			name:  "missing field",
			base:  map[string]any{"name": "Soumission", "description": "a novel"},
			other: map[string]any{"name": "Soumission"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, diff.ComputeHash(tt.base), diff.ComputeHash(tt.other))
		})
	}
}

func TestFlattenNestedAttributes(t *testing.T) {
	flat := diff.Flatten(map[string]any{
		"name": "Tipping the Velvet",
		"price": map[string]any{
			"including_tax": 53.74,
			"currency":      "£",
		},
	})

	assert.Equal(t, "Tipping the Velvet", flat["name"])
	assert.Equal(t, 53.74, flat["price.including_tax"])
	assert.Equal(t, "£", flat["price.currency"])
	assert.NotContains(t, flat, "price")
}
