package scraper

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/models"
	"github.com/crosslister/product-scraper/internal/selector"
)

var amazonDomains = []string{"amazon.com", "amazon.ca", "amazon.co.uk"}

// Amazon product image URLs encode the rendered size; rewriting the size
// token yields the high-resolution original.
var (
	amazonSizeRe   = regexp.MustCompile(`_SL\d+_`)
	amazonFormatRe = regexp.MustCompile(`_AC_.*?_`)
)

type AmazonAdapter struct {
	table   selector.Table
	timeout time.Duration
	logger  *slog.Logger
}

func DefaultAmazonTable() selector.Table {
	return selector.Table{
		Title: []selector.Rule{
			selector.Dom("#productTitle"),
			selector.Dom("#title"),
		},
		Price: []selector.Rule{
			selector.Dom(".a-price-whole"),
			selector.Dom(".a-price"),
		},
		Description: []selector.Rule{
			selector.Dom("#featureBulletsAndDescription_hoc_feature_div"),
			selector.Dom("#feature-bullets"),
		},
	}
}

func NewAmazonAdapter(table selector.Table, logger *slog.Logger) *AmazonAdapter {
	if len(table.Title) == 0 {
		table = DefaultAmazonTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AmazonAdapter{
		table:   table,
		timeout: 15 * time.Second,
		logger:  logger.With("component", "amazon_adapter"),
	}
}

// amazonBlockIndicators covers Amazon's own interstitials. Listings often
// mention phrases from the default set ("robot" vacuums, CDN vendor names),
// so the sensor gets this narrower list.
var amazonBlockIndicators = []string{
	"enter the characters you see below",
	"sorry, we just need to make sure you're not a robot",
	"klicke auf die schaltfläche unten",
	"type the characters you see in this image",
}

func (a *AmazonAdapter) Name() string      { return "amazon" }
func (a *AmazonAdapter) Domains() []string { return amazonDomains }

func (a *AmazonAdapter) BlockIndicators() []string { return amazonBlockIndicators }

func (a *AmazonAdapter) Matches(rawURL string) bool {
	return matchesAnyDomain(rawURL, amazonDomains)
}

func (a *AmazonAdapter) Prepare(s browser.Session) {}

func (a *AmazonAdapter) ExtractFields(s browser.Session) (*models.ProductData, error) {
	title, ok := selector.Resolve(s, a.table.Title, a.timeout)
	if !ok {
		return nil, &ErrExtraction{Field: "title"}
	}

	price, _ := selector.Resolve(s, a.table.Price, a.timeout)
	description, _ := selector.Resolve(s, a.table.Description, a.timeout)

	a.logger.Debug("fields extracted", "title_len", len(title), "has_price", price != "")

	return &models.ProductData{
		Title:       title,
		Price:       normalizePrice(price),
		Description: description,
	}, nil
}

func (a *AmazonAdapter) ExtractImages(s browser.Session, maxImages int) []string {
	content, err := s.Content()
	if err != nil {
		a.logger.Warn("could not read page content for images", "error", err)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, ok = img.Attr("data-src")
			if !ok || src == "" {
				return true
			}
		}
		if !isAmazonProductImage(img, src) {
			return true
		}

		src = amazonSizeRe.ReplaceAllString(src, "_SL1500_")
		src = amazonFormatRe.ReplaceAllString(src, "_AC_SL1500_")

		if seen[src] {
			return true
		}
		seen[src] = true
		urls = append(urls, src)
		return len(urls) < maxImages
	})

	return urls
}

func isAmazonProductImage(img *goquery.Selection, src string) bool {
	if id, _ := img.Attr("id"); id == "main-image" || id == "landingImage" {
		return true
	}
	if name, _ := img.Attr("data-a-image-name"); name == "altImage" {
		return true
	}
	return strings.Contains(src, "media-amazon.com/images/I/")
}

// normalizePrice trims whitespace and trailing separators left behind by
// price markup that splits the whole and fractional parts.
func normalizePrice(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ".")
	raw = strings.TrimSuffix(raw, ",")
	return raw
}
