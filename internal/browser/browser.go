package browser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/crosslister/product-scraper/internal/proxy"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	proxies *proxy.Pool
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/Toronto",
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

// sessionHeaders merges the extra headers with the Accept-Language knob.
// An explicit AcceptLanguage wins over an Accept-Language entry in
// ExtraHeaders.
func (o *Options) sessionHeaders() map[string]string {
	headers := make(map[string]string, len(o.ExtraHeaders)+1)
	for k, v := range o.ExtraHeaders {
		headers[k] = v
	}
	if o.AcceptLanguage != "" {
		headers["Accept-Language"] = o.AcceptLanguage
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// New starts playwright and launches a single Chromium instance. Sessions
// (contexts) are created per extraction run; the browser process is shared.
// proxies may be nil, in which case no proxy is used.
func New(opts *Options, proxies *proxy.Pool) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-infobars",
			"--disable-extensions",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
			"--user-agent=" + opts.UserAgent,
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: b,
		opts:    opts,
		proxies: proxies,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// NewSession creates a fresh isolated context and page. Cookies and
// fingerprint state never leak between sessions. If a proxy pool is
// configured, the next proxy in rotation is applied to the context.
func (b *Browser) NewSession() (Session, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &b.opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &b.opts.Locale,
		TimezoneId:        &b.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: b.opts.sessionHeaders(),
	}

	if b.proxies != nil {
		if server, ok := b.proxies.Next(); ok {
			contextOpts.Proxy = &playwright.Proxy{Server: server}
			b.logger.Debug("session using proxy", "server", server)
		}
	}

	context, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	return &pageSession{context: context, page: page}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// pageSession implements Session on top of a playwright context+page pair.
type pageSession struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (s *pageSession) Navigate(url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *pageSession) Content() (string, error) {
	return s.page.Content()
}

func (s *pageSession) Title() (string, error) {
	return s.page.Title()
}

func (s *pageSession) Text(query string, timeout time.Duration) (string, error) {
	text, err := s.page.Locator(query).First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *pageSession) Attr(query, attr string, timeout time.Duration) (string, error) {
	value, err := s.page.Locator(query).First().GetAttribute(attr, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func (s *pageSession) Click(query string, timeout time.Duration) error {
	return s.page.Locator(query).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (s *pageSession) Evaluate(js string) (any, error) {
	return s.page.Evaluate(js)
}

func (s *pageSession) MouseMove(x, y float64) error {
	return s.page.Mouse().Move(x, y)
}

func (s *pageSession) Close() error {
	var errs []error

	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close page: %w", err))
	}
	if err := s.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close context: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
