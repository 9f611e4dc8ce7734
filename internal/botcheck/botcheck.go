// Package botcheck classifies rendered pages as blocked or not. It only
// detects; deciding between retry and abort is the caller's job.
package botcheck

import "strings"

// defaultIndicators are high-confidence blocking phrases matched against the
// lowercased page content.
var defaultIndicators = []string{
	"press & hold",
	"confirm you are a human",
	"verify you are human",
	"captcha",
	"are you a robot",
	"not a bot",
	"cloudflare",
	"access denied",
	"klicke auf die schaltfläche unten",
}

// titleIndicators are matched against the page title only.
var titleIndicators = []string{
	"robot check",
	"access denied",
	"attention required",
	"tut uns leid",
}

// Sensor scans page content and title for blocking interstitials. A site may
// supply a narrower indicator subset to avoid false positives on pages that
// legitimately mention robots.
type Sensor struct {
	indicators []string
	titles     []string
}

func NewSensor() *Sensor {
	return &Sensor{indicators: defaultIndicators, titles: titleIndicators}
}

// WithIndicators returns a sensor restricted to the given content phrases.
// The title list is kept.
func (s *Sensor) WithIndicators(indicators []string) *Sensor {
	if len(indicators) == 0 {
		return s
	}
	return &Sensor{indicators: indicators, titles: s.titles}
}

// IsBlocked reports whether the page shows a blocking signal, and which
// indicator matched, for diagnostics. Returns on the first match.
func (s *Sensor) IsBlocked(content, title string) (bool, string) {
	lowered := strings.ToLower(content)
	for _, indicator := range s.indicators {
		if strings.Contains(lowered, indicator) {
			return true, indicator
		}
	}

	loweredTitle := strings.ToLower(title)
	for _, indicator := range s.titles {
		if strings.Contains(loweredTitle, indicator) {
			return true, indicator
		}
	}

	return false, ""
}
