package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslister/product-scraper/internal/browser/browsertest"
)

func TestGenericAdapter_PrefersOpenGraphMetadata(t *testing.T) {
	adapter := NewGenericAdapter(nil)
	session := browsertest.New(`<html><head>
<meta property="og:title" content="Oak Chair"/>
<meta property="og:description" content="A solid oak dining chair."/>
<meta property="og:price:amount" content="129.00"/>
</head><body><h1>Welcome to our store</h1></body></html>`)

	product, err := adapter.ExtractFields(session)
	require.NoError(t, err)

	assert.Equal(t, "Oak Chair", product.Title)
	assert.Equal(t, "A solid oak dining chair.", product.Description)
	assert.Equal(t, "129.00", product.Price)
}

func TestGenericAdapter_FallsBackToHeadings(t *testing.T) {
	adapter := NewGenericAdapter(nil)
	session := browsertest.New(`<html><body>
<h1>Vintage Brass Lamp</h1>
<p>Only $45.00 this week.</p>
</body></html>`)

	product, err := adapter.ExtractFields(session)
	require.NoError(t, err)

	assert.Equal(t, "Vintage Brass Lamp", product.Title)
	assert.Equal(t, "$45.00", product.Price)
}

func TestGenericAdapter_UsesPageTitleAsLastResort(t *testing.T) {
	adapter := NewGenericAdapter(nil)
	session := browsertest.New(`<html><head><title>Rattan Basket - Shop</title></head><body><p>no headings</p></body></html>`)

	product, err := adapter.ExtractFields(session)
	require.NoError(t, err)
	assert.Equal(t, "Rattan Basket - Shop", product.Title)
}

func TestGenericAdapter_NoTitleAnywhereFails(t *testing.T) {
	adapter := NewGenericAdapter(nil)
	session := browsertest.New(`<html><body><p>bare page</p></body></html>`)

	_, err := adapter.ExtractFields(session)
	require.Error(t, err)

	var extractErr *ErrExtraction
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "title", extractErr.Field)
}

func TestGenericAdapter_ExtractImagesSkipsPageChrome(t *testing.T) {
	adapter := NewGenericAdapter(nil)
	session := browsertest.New(`<html><head>
<meta property="og:image" content="https://cdn.example.com/products/lamp-hero.jpg"/>
</head><body>
<img src="https://cdn.example.com/assets/logo.png"/>
<img src="https://cdn.example.com/tracking/pixel.gif"/>
<img src="https://cdn.example.com/products/lamp-side.jpg"/>
<img src="/relative/lamp-back.jpg"/>
<img src="https://cdn.example.com/products/lamp-hero.jpg"/>
</body></html>`)

	urls := adapter.ExtractImages(session, 10)

	assert.Equal(t, []string{
		"https://cdn.example.com/products/lamp-hero.jpg",
		"https://cdn.example.com/products/lamp-side.jpg",
	}, urls)
}

func TestGenericAdapter_MatchesAnyHTTPURL(t *testing.T) {
	adapter := NewGenericAdapter(nil)

	assert.True(t, adapter.Matches("https://anything.example.org/product/1"))
	assert.True(t, adapter.Matches("http://plain.example.net"))
	assert.False(t, adapter.Matches("ftp://files.example.com/listing"))
	assert.False(t, adapter.Matches("not a url"))
}
