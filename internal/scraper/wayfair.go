package scraper

import (
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/models"
	"github.com/crosslister/product-scraper/internal/selector"
)

var wayfairDomains = []string{"wayfair.com", "wayfair.ca"}

// Wayfair lazy-loads most of the page and hides details behind collapsed
// panels, so the adapter clicks the panels open and relies on meta tags as
// a fallback when the obfuscated CSS classes rotate.
type WayfairAdapter struct {
	table        selector.Table
	timeout      time.Duration
	settle       time.Duration
	panelButtons []string
	logger       *slog.Logger
}

func DefaultWayfairTable() selector.Table {
	return selector.Table{
		Title: []selector.Rule{
			selector.Dom(`h1[data-hb-id="Heading"]`),
			selector.Dom(`[data-test-id="productTitle"]`),
			selector.Dom("h1.pl-Heading"),
			selector.Dom("h1"),
			selector.Meta("og:title"),
		},
		Price: []selector.Rule{
			selector.Dom(`[data-test-id="PriceDisplay"]`),
			selector.Dom(`span[data-enzyme-id="PriceBlock"]`),
			selector.Dom(".SFPrice"),
			selector.Dom(`div[data-hb-id="Price"]`),
		},
		Description: []selector.Rule{
			selector.Dom(`[data-test-id="ProductOverview"]`),
			selector.Dom(`div[data-enzyme-id="AboutThisItem"]`),
			selector.Dom(".ProductOverviewInformation"),
			selector.Meta("og:description"),
		},
	}
}

func NewWayfairAdapter(table selector.Table, logger *slog.Logger) *WayfairAdapter {
	if len(table.Title) == 0 {
		table = DefaultWayfairTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WayfairAdapter{
		table:   table,
		timeout: 20 * time.Second,
		settle:  5 * time.Second,
		panelButtons: []string{
			`button[data-test-id="CollapsePanelToggle"]`,
			`button[aria-label="Show More"]`,
			`[data-enzyme-id="CollapseToggle"]`,
		},
		logger: logger.With("component", "wayfair_adapter"),
	}
}

// wayfairBlockIndicators matches the PerimeterX challenge Wayfair serves.
var wayfairBlockIndicators = []string{
	"press & hold",
	"verify you are human",
	"access denied",
	"captcha",
}

func (w *WayfairAdapter) Name() string      { return "wayfair" }
func (w *WayfairAdapter) Domains() []string { return wayfairDomains }

func (w *WayfairAdapter) BlockIndicators() []string { return wayfairBlockIndicators }

func (w *WayfairAdapter) Matches(rawURL string) bool {
	return matchesAnyDomain(rawURL, wayfairDomains)
}

// Prepare expands the description panels so their text lands in the DOM.
// Every click is best-effort.
func (w *WayfairAdapter) Prepare(s browser.Session) {
	time.Sleep(w.settle)
	for _, query := range w.panelButtons {
		if err := s.Click(query, 3*time.Second); err != nil {
			continue
		}
		w.logger.Debug("expanded panel", "query", query)
		time.Sleep(w.settle / 5)
	}
}

func (w *WayfairAdapter) ExtractFields(s browser.Session) (*models.ProductData, error) {
	title, ok := selector.Resolve(s, w.table.Title, w.timeout)
	if !ok {
		return nil, &ErrExtraction{Field: "title"}
	}

	price, _ := selector.Resolve(s, w.table.Price, w.timeout)
	description, _ := selector.Resolve(s, w.table.Description, w.timeout)

	return &models.ProductData{
		Title:       title,
		Price:       normalizePrice(price),
		Description: description,
	}, nil
}

func (w *WayfairAdapter) ExtractImages(s browser.Session, maxImages int) []string {
	content, err := s.Content()
	if err != nil {
		w.logger.Warn("could not read page content for images", "error", err)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string

	add := func(src string) bool {
		src = upgradeWayfairImage(src)
		if src == "" || seen[src] {
			return len(urls) < maxImages
		}
		seen[src] = true
		urls = append(urls, src)
		return len(urls) < maxImages
	}

	doc.Find(`img[data-enzyme-id="InitialImage"], li[data-hb-id="CarouselItem"] img, .ProductDetailImageCarousel img`).
		EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if src == "" {
				src, _ = img.Attr("data-src")
			}
			return add(src)
		})

	if len(urls) == 0 {
		if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
			add(og)
		}
	}

	return urls
}

// upgradeWayfairImage bumps the resize parameter on the CDN URL from the
// carousel thumbnail size to a listing-grade one.
func upgradeWayfairImage(src string) string {
	return strings.Replace(src, "resize=h800", "resize=h1200", 1)
}
