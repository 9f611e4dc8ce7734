package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		price       string
		description string
		images      int
		expected    []string
	}{
		{
			name:     "everything present",
			title:    "Oak Chair",
			price:    "$120",
			description: "Solid oak dining chair",
			images:   4,
			expected: []string{},
		},
		{
			name:     "no description and no images",
			title:    "Oak Chair",
			price:    "$120",
			images:   0,
			expected: []string{"description", "images"},
		},
		{
			name:     "only title",
			title:    "Oak Chair",
			expected: []string{"price", "description", "images"},
		},
		{
			name:     "nothing",
			expected: []string{"title", "price", "description", "images"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingFields(tt.title, tt.price, tt.description, tt.images)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, ProductReadyToPost, DeriveStatus(ProductPending, nil))
	assert.Equal(t, ProductCollected, DeriveStatus(ProductPending, []string{"price"}))
	assert.Equal(t, ProductReadyToPost, DeriveStatus(ProductFailed, nil))

	// posted is terminal, manual edits must not clear it
	assert.Equal(t, ProductPosted, DeriveStatus(ProductPosted, nil))
	assert.Equal(t, ProductPosted, DeriveStatus(ProductPosted, []string{"images"}))
}

func TestRecomputeIdempotent(t *testing.T) {
	p := &Product{
		URL:         "https://example.com/p/1",
		Title:       "Oak Chair",
		Price:       "$120",
		Status:      ProductPending,
		ImageCount:  0,
		Description: "",
	}

	changed := p.Recompute()
	assert.True(t, changed)
	assert.Equal(t, ProductCollected, p.Status)
	assert.Equal(t, []string{"description", "images"}, p.MissingFields)

	// recomputing without new data must not drift or report a change
	changed = p.Recompute()
	assert.False(t, changed)
	assert.Equal(t, ProductCollected, p.Status)
	assert.Equal(t, []string{"description", "images"}, p.MissingFields)
}

func TestRecomputeAfterManualEdit(t *testing.T) {
	p := &Product{
		URL:        "https://example.com/p/2",
		Title:      "Oak Chair",
		Price:      "$120",
		Status:     ProductCollected,
		ImageCount: 3,
	}

	// user fills the missing description
	p.Description = "Solid oak dining chair"
	changed := p.Recompute()
	assert.True(t, changed)
	assert.Equal(t, ProductReadyToPost, p.Status)
	assert.Empty(t, p.MissingFields)
}
