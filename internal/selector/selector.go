// Package selector implements ordered, per-field extraction rule lists. A
// rule list is a priority order, not a race: the first rule yielding
// non-blank trimmed text wins, and later rules are never consulted.
package selector

import (
	"fmt"
	"strings"
	"time"

	"github.com/crosslister/product-scraper/internal/browser"
)

// Kind tags the two rule variants.
type Kind string

const (
	// DomQuery locates an element by CSS query and reads its text, or a
	// named attribute when Attribute is set.
	DomQuery Kind = "dom"
	// MetaProperty reads a <meta> tag by property (OpenGraph style), falling
	// back to the name attribute.
	MetaProperty Kind = "meta"
)

// Rule is one ordered attempt to locate a field's value.
type Rule struct {
	Kind      Kind   `yaml:"kind"`
	Query     string `yaml:"query,omitempty"`
	Attribute string `yaml:"attribute,omitempty"`
	Property  string `yaml:"property,omitempty"`
}

// Dom builds a DomQuery rule reading element text.
func Dom(query string) Rule {
	return Rule{Kind: DomQuery, Query: query}
}

// DomAttr builds a DomQuery rule reading an attribute.
func DomAttr(query, attribute string) Rule {
	return Rule{Kind: DomQuery, Query: query, Attribute: attribute}
}

// Meta builds a MetaProperty rule.
func Meta(property string) Rule {
	return Rule{Kind: MetaProperty, Property: property}
}

// Resolve tries rules strictly in order against the session. Each attempt is
// bounded by timeout; a rule that errors, times out, or yields blank text is
// a miss and the next rule is tried. There are no retries within a rule.
func Resolve(s browser.Session, rules []Rule, timeout time.Duration) (string, bool) {
	for _, rule := range rules {
		value, err := apply(s, rule, timeout)
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value, true
		}
	}
	return "", false
}

func apply(s browser.Session, rule Rule, timeout time.Duration) (string, error) {
	switch rule.Kind {
	case DomQuery:
		if rule.Attribute != "" {
			return s.Attr(rule.Query, rule.Attribute, timeout)
		}
		return s.Text(rule.Query, timeout)
	case MetaProperty:
		value, err := s.Attr(fmt.Sprintf(`meta[property=%q]`, rule.Property), "content", timeout)
		if err == nil && strings.TrimSpace(value) != "" {
			return value, nil
		}
		return s.Attr(fmt.Sprintf(`meta[name=%q]`, rule.Property), "content", timeout)
	default:
		return "", fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}
