package scraper

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/models"
)

// GenericAdapter handles any site without a dedicated adapter. It leans on
// page metadata (Open Graph, standard meta tags) before falling back to
// heuristics over the DOM, and accepts partial results: only the title is
// required.
type GenericAdapter struct {
	logger *slog.Logger
}

var priceRe = regexp.MustCompile(`[$£€]\s?\d{1,3}(?:[,.]\d{3})*(?:\.\d{2})?`)

// Image URLs matching these fragments are page chrome, not product shots.
var skipImagePatterns = []string{"logo", "icon", "banner", "pixel", "sprite", "avatar", "badge"}

func NewGenericAdapter(logger *slog.Logger) *GenericAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenericAdapter{logger: logger.With("component", "generic_adapter")}
}

func (g *GenericAdapter) Name() string      { return "generic" }
func (g *GenericAdapter) Domains() []string { return nil }

// BlockIndicators returns nil; unknown sites get the default sensor set.
func (g *GenericAdapter) BlockIndicators() []string { return nil }

func (g *GenericAdapter) Matches(rawURL string) bool {
	return isHTTP(rawURL)
}

func (g *GenericAdapter) Prepare(s browser.Session) {}

func (g *GenericAdapter) ExtractFields(s browser.Session) (*models.ProductData, error) {
	content, err := s.Content()
	if err != nil {
		return nil, &ErrExtraction{Field: "title"}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &ErrExtraction{Field: "title"}
	}

	title := metaContent(doc, "og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h2").First().Text())
	}
	if title == "" {
		pageTitle, terr := s.Title()
		if terr == nil {
			title = strings.TrimSpace(pageTitle)
		}
	}
	if title == "" {
		return nil, &ErrExtraction{Field: "title"}
	}

	description := metaContent(doc, "og:description")
	if description == "" {
		description = metaContent(doc, "description")
	}

	price := metaContent(doc, "og:price:amount")
	if price == "" {
		price = metaContent(doc, "product:price:amount")
	}
	if price == "" {
		price = priceRe.FindString(doc.Find("body").Text())
	}

	return &models.ProductData{
		Title:       title,
		Price:       normalizePrice(price),
		Description: description,
	}, nil
}

func (g *GenericAdapter) ExtractImages(s browser.Session, maxImages int) []string {
	content, err := s.Content()
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string

	add := func(src string) bool {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] || skipImage(src) {
			return len(urls) < maxImages
		}
		seen[src] = true
		urls = append(urls, src)
		return len(urls) < maxImages
	}

	if og := metaContent(doc, "og:image"); og != "" {
		add(og)
	}
	if tw := metaContent(doc, "twitter:image"); tw != "" && len(urls) < maxImages {
		add(tw)
	}

	if len(urls) < maxImages {
		doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			if src == "" {
				src, _ = img.Attr("data-src")
			}
			return add(src)
		})
	}

	return urls
}

func skipImage(src string) bool {
	if !strings.HasPrefix(src, "http") {
		return true
	}
	u, err := url.Parse(src)
	if err != nil {
		return true
	}
	lower := strings.ToLower(u.Path)
	for _, p := range skipImagePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// metaContent reads a meta tag by property, falling back to name.
func metaContent(doc *goquery.Document, key string) string {
	if v, ok := doc.Find(`meta[property="` + key + `"]`).Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="` + key + `"]`).Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
