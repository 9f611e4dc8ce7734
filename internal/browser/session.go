package browser

import "time"

// Session is one isolated automated-browser page. Adapters and the
// orchestrator are written against this interface so extraction logic can be
// exercised without a live browser.
type Session interface {
	// Navigate loads the URL and waits for DOM content, bounded by timeout.
	Navigate(url string, timeout time.Duration) error
	// Content returns the current rendered HTML.
	Content() (string, error)
	// Title returns the current page title.
	Title() (string, error)
	// Text returns the trimmed text of the first element matching the CSS
	// query, waiting up to timeout for it to appear.
	Text(query string, timeout time.Duration) (string, error)
	// Attr returns the named attribute of the first element matching the CSS
	// query, waiting up to timeout for it to appear.
	Attr(query, attr string, timeout time.Duration) (string, error)
	// Click clicks the first element matching the CSS query.
	Click(query string, timeout time.Duration) error
	// Evaluate runs a JavaScript expression in the page.
	Evaluate(js string) (any, error)
	// MouseMove moves the pointer to page coordinates.
	MouseMove(x, y float64) error
	// Close tears the session down. Must be safe to call on every exit path.
	Close() error
}

// SessionFactory creates a fresh isolated session per extraction run. No
// session is ever reused across targets.
type SessionFactory interface {
	NewSession() (Session, error)
}
