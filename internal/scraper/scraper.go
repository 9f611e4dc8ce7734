// Package scraper extracts product listings from retail pages. Each
// supported site has an Adapter that knows its DOM; a Registry dispatches
// URLs to the first adapter that claims them, and the Orchestrator drives
// the full run from navigation to persisted artifacts.
package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/crosslister/product-scraper/internal/browser"
	"github.com/crosslister/product-scraper/internal/models"
	"github.com/crosslister/product-scraper/internal/selector"
)

// Adapter encapsulates site-specific extraction. Matches is a pure URL
// check; ExtractFields and ExtractImages operate on an already-loaded page.
type Adapter interface {
	Name() string
	Matches(rawURL string) bool

	// Prepare runs site-specific setup after navigation (expanding
	// collapsed panels, waiting for lazy content). Failures are
	// non-fatal; extraction proceeds with whatever is on the page.
	Prepare(s browser.Session)

	// ExtractFields returns the structured product data. A missing
	// title is fatal and reported as ErrExtraction; every other field
	// may come back empty.
	ExtractFields(s browser.Session) (*models.ProductData, error)

	// ExtractImages returns up to maxImages source URLs, best first.
	ExtractImages(s browser.Session, maxImages int) []string

	// Domains lists the hostnames the adapter claims, empty for
	// catch-all adapters.
	Domains() []string

	// BlockIndicators lists the content phrases that mark this site's
	// blocking interstitials. Nil means the shared default set. Sites
	// whose product pages legitimately mention phrases from the default
	// set declare a narrower subset here.
	BlockIndicators() []string
}

// Registry holds adapters in priority order. The generic adapter matches
// everything, so it must be registered last.
type Registry struct {
	adapters []Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// NewDefaultRegistry builds the standard adapter chain. An override table
// keyed by adapter name replaces that adapter's built-in selectors.
func NewDefaultRegistry(overrides selector.Overrides, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewAmazonAdapter(overrides["amazon"], logger),
		NewWayfairAdapter(overrides["wayfair"], logger),
		NewGenericAdapter(logger),
	)
}

// Select returns the first adapter claiming the URL. It returns false only
// for URLs no adapter accepts, which in practice means malformed ones.
func (r *Registry) Select(rawURL string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Matches(rawURL) {
			return a, true
		}
	}
	return nil, false
}

// SupportedDomains lists every hostname explicitly claimed by a registered
// adapter, in registration order.
func (r *Registry) SupportedDomains() []string {
	var domains []string
	for _, a := range r.adapters {
		domains = append(domains, a.Domains()...)
	}
	return domains
}

// hostMatches reports whether host is domain or a subdomain of it.
func hostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func matchesAnyDomain(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, d := range domains {
		if hostMatches(u.Hostname(), d) {
			return true
		}
	}
	return false
}

func isHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
