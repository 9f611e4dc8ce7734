// Package stealth reduces the automation signal of a browser session.
// Everything here is best-effort: a failed shim or gesture must never block
// extraction.
package stealth

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/crosslister/product-scraper/internal/browser"
)

// shims are independent property overrides applied to the page. Each one
// targets a well-known automation probe; failure of one does not stop the
// rest.
var shims = []string{
	`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`,

	`window.chrome = { runtime: {} };`,

	`Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });`,

	`Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });`,

	`const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);`,

	`Object.defineProperty(navigator, 'headless', { get: () => false });`,
}

type Controller struct {
	logger   *slog.Logger
	minPause time.Duration
	maxPause time.Duration
}

func NewController(minPause, maxPause time.Duration) *Controller {
	if minPause <= 0 {
		minPause = 500 * time.Millisecond
	}
	if maxPause < minPause {
		maxPause = minPause
	}
	return &Controller{
		logger:   slog.Default().With("component", "stealth"),
		minPause: minPause,
		maxPause: maxPause,
	}
}

// ApplyShims injects the anti-detection property overrides and returns how
// many applied cleanly. It never returns an error.
func (c *Controller) ApplyShims(s browser.Session) int {
	applied := 0
	for i, script := range shims {
		if _, err := s.Evaluate(script); err != nil {
			c.logger.Debug("shim failed", "index", i+1, "error", err)
			continue
		}
		applied++
	}
	c.logger.Debug("stealth shims applied", "applied", applied, "total", len(shims))
	return applied
}

// SimulateHumanBehavior performs a bounded sequence of randomized pointer
// moves and scrolls with jittered pauses. Used before extraction to let lazy
// content load, and as a bypass attempt after a detection hit.
func (c *Controller) SimulateHumanBehavior(s browser.Session) {
	for i := 0; i < 3; i++ {
		x := float64(100 + rand.Intn(800))
		y := float64(100 + rand.Intn(500))
		if err := s.MouseMove(x, y); err != nil {
			c.logger.Debug("mouse move failed", "error", err)
		}
		c.pause()
	}

	scrolls := []string{
		fmt.Sprintf(`window.scrollTo(0, %d);`, rand.Intn(500)),
		`window.scrollTo(0, document.body.scrollHeight/2);`,
		fmt.Sprintf(`window.scrollTo(0, %d);`, rand.Intn(300)),
	}
	for _, js := range scrolls {
		if _, err := s.Evaluate(js); err != nil {
			c.logger.Debug("scroll failed", "error", err)
		}
		c.pause()
	}
}

func (c *Controller) pause() {
	delta := c.maxPause - c.minPause
	d := c.minPause
	if delta > 0 {
		d += time.Duration(rand.Int63n(int64(delta)))
	}
	time.Sleep(d)
}
