package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslister/product-scraper/internal/selector"
)

func testRegistry() *Registry {
	return NewDefaultRegistry(selector.Overrides{}, nil)
}

func TestRegistry_Select(t *testing.T) {
	registry := testRegistry()

	tests := []struct {
		name    string
		url     string
		adapter string
		matched bool
	}{
		{"amazon com", "https://www.amazon.com/dp/B0TEST1234", "amazon", true},
		{"amazon ca", "https://amazon.ca/dp/B0TEST1234", "amazon", true},
		{"amazon uk", "https://www.amazon.co.uk/dp/B0TEST1234", "amazon", true},
		{"wayfair", "https://www.wayfair.com/furniture/pdp/chair", "wayfair", true},
		{"wayfair ca", "https://wayfair.ca/furniture/pdp/chair", "wayfair", true},
		{"unknown site falls to generic", "https://shop.example.com/item/42", "generic", true},
		{"amazon lookalike is not amazon", "https://notamazon.com/dp/B0TEST1234", "generic", true},
		{"malformed", "not a url", "", false},
		{"missing host", "https:///dp/B0TEST1234", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, ok := registry.Select(tt.url)
			require.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.adapter, adapter.Name())
			}
		})
	}
}

func TestRegistry_SupportedDomains(t *testing.T) {
	domains := testRegistry().SupportedDomains()

	assert.Equal(t, []string{
		"amazon.com", "amazon.ca", "amazon.co.uk",
		"wayfair.com", "wayfair.ca",
	}, domains)
}

func TestRegistry_OverrideReplacesBuiltinSelectors(t *testing.T) {
	overrides := selector.Overrides{
		"amazon": selector.Table{
			Title: []selector.Rule{selector.Dom(".custom-title")},
		},
	}
	registry := NewDefaultRegistry(overrides, nil)

	adapter, ok := registry.Select("https://www.amazon.com/dp/B0TEST1234")
	require.True(t, ok)

	amazon, ok := adapter.(*AmazonAdapter)
	require.True(t, ok)
	assert.Equal(t, ".custom-title", amazon.table.Title[0].Query)
}
