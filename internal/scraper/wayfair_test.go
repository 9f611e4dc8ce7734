package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslister/product-scraper/internal/browser/browsertest"
	"github.com/crosslister/product-scraper/internal/selector"
)

const wayfairProductHTML = `<html><head>
<meta property="og:title" content="Meta Title Sofa"/>
<meta property="og:description" content="A comfy meta description."/>
</head><body>
<h1 data-hb-id="Heading">Linen Upholstered Sofa</h1>
<div data-test-id="PriceDisplay">$599.99</div>
<button data-test-id="CollapsePanelToggle">Weights &amp; Dimensions</button>
<div data-test-id="ProductOverview">Kiln-dried hardwood frame with linen blend.</div>
<img data-enzyme-id="InitialImage" src="https://assets.wfcdn.com/im/123/resize=h800/sofa1.jpg"/>
<li data-hb-id="CarouselItem"><img src="https://assets.wfcdn.com/im/456/resize=h800/sofa2.jpg"/></li>
</body></html>`

func newTestWayfair() *WayfairAdapter {
	adapter := NewWayfairAdapter(selector.Table{}, nil)
	adapter.settle = 0
	return adapter
}

func TestWayfairAdapter_ExtractFields(t *testing.T) {
	adapter := newTestWayfair()
	session := browsertest.New(wayfairProductHTML)

	product, err := adapter.ExtractFields(session)
	require.NoError(t, err)

	assert.Equal(t, "Linen Upholstered Sofa", product.Title)
	assert.Equal(t, "$599.99", product.Price)
	assert.Equal(t, "Kiln-dried hardwood frame with linen blend.", product.Description)
}

func TestWayfairAdapter_FallsBackToMetaTags(t *testing.T) {
	adapter := newTestWayfair()
	session := browsertest.New(`<html><head>
<meta property="og:title" content="Meta Title Sofa"/>
<meta property="og:description" content="A comfy meta description."/>
</head><body></body></html>`)

	product, err := adapter.ExtractFields(session)
	require.NoError(t, err)

	assert.Equal(t, "Meta Title Sofa", product.Title)
	assert.Equal(t, "A comfy meta description.", product.Description)
}

func TestWayfairAdapter_PrepareExpandsPanels(t *testing.T) {
	adapter := newTestWayfair()
	session := browsertest.New(wayfairProductHTML)

	adapter.Prepare(session)

	assert.Contains(t, session.Clicked, `button[data-test-id="CollapsePanelToggle"]`)
}

func TestWayfairAdapter_ExtractImagesUpgradesResolution(t *testing.T) {
	adapter := newTestWayfair()
	session := browsertest.New(wayfairProductHTML)

	urls := adapter.ExtractImages(session, 10)

	assert.Equal(t, []string{
		"https://assets.wfcdn.com/im/123/resize=h1200/sofa1.jpg",
		"https://assets.wfcdn.com/im/456/resize=h1200/sofa2.jpg",
	}, urls)
}

func TestWayfairAdapter_ImagesFallBackToOpenGraph(t *testing.T) {
	adapter := newTestWayfair()
	session := browsertest.New(`<html><head>
<meta property="og:image" content="https://assets.wfcdn.com/im/789/resize=h800/hero.jpg"/>
</head><body></body></html>`)

	urls := adapter.ExtractImages(session, 10)
	assert.Equal(t, []string{"https://assets.wfcdn.com/im/789/resize=h1200/hero.jpg"}, urls)
}

func TestWayfairAdapter_Matches(t *testing.T) {
	adapter := newTestWayfair()

	assert.True(t, adapter.Matches("https://www.wayfair.com/furniture/pdp/sofa"))
	assert.True(t, adapter.Matches("https://wayfair.ca/furniture/pdp/sofa"))
	assert.False(t, adapter.Matches("https://wayfair.de/furniture/pdp/sofa"))
}
