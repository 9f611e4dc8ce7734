package selector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslister/product-scraper/internal/browser/browsertest"
)

const productHTML = `<html>
<head>
	<meta property="og:title" content="Oak Chair">
	<meta name="description" content="Meta description text">
</head>
<body>
	<h1 id="productTitle">  Oak Chair Deluxe  </h1>
	<span class="price" data-amount="120.00">$120.00</span>
	<div id="empty"></div>
</body>
</html>`

func TestResolveFirstMatchWins(t *testing.T) {
	s := browsertest.New(productHTML)

	// both rules would match; the first one's value must win
	value, ok := Resolve(s, []Rule{Dom("#productTitle"), Meta("og:title")}, time.Second)
	require.True(t, ok)
	assert.Equal(t, "Oak Chair Deluxe", value)
}

func TestResolveFallsThroughMisses(t *testing.T) {
	s := browsertest.New(productHTML)

	tests := []struct {
		name  string
		rules []Rule
		want  string
	}{
		{
			name:  "missing element falls through to meta",
			rules: []Rule{Dom("#title-missing"), Meta("og:title")},
			want:  "Oak Chair",
		},
		{
			name:  "blank text is a miss",
			rules: []Rule{Dom("#empty"), Dom("#productTitle")},
			want:  "Oak Chair Deluxe",
		},
		{
			name:  "attribute rule",
			rules: []Rule{DomAttr("span.price", "data-amount")},
			want:  "120.00",
		},
		{
			name:  "meta name fallback",
			rules: []Rule{Meta("description")},
			want:  "Meta description text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := Resolve(s, tt.rules, time.Second)
			require.True(t, ok)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	s := browsertest.New(productHTML)
	_, ok := Resolve(s, []Rule{Dom("#nope"), Meta("og:price")}, time.Second)
	assert.False(t, ok)
}

func TestTableValidate(t *testing.T) {
	table := Table{Price: []Rule{Dom(".price")}}
	assert.Error(t, table.Validate(), "title rules are required")

	table.Title = []Rule{Dom("h1")}
	assert.NoError(t, table.Validate())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	content := `amazon:
  title:
    - kind: dom
      query: "#productTitle"
    - kind: meta
      property: "og:title"
  price:
    - kind: dom
      query: ".a-price-whole"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Contains(t, overrides, "amazon")
	assert.Len(t, overrides["amazon"].Title, 2)
	assert.Equal(t, DomQuery, overrides["amazon"].Title[0].Kind)
	assert.Equal(t, MetaProperty, overrides["amazon"].Title[1].Kind)
}

func TestLoadOverridesMissingFile(t *testing.T) {
	overrides, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadOverridesRejectsEmptyTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wayfair:\n  price:\n    - kind: dom\n      query: .price\n"), 0o644))

	_, err := LoadOverrides(path)
	assert.Error(t, err)
}
