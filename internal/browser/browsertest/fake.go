// Package browsertest provides a goquery-backed Session fake so extraction
// logic can be tested against static HTML without a live browser.
package browsertest

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crosslister/product-scraper/internal/browser"
)

// FakeSession serves a fixed HTML document through the browser.Session
// interface. Navigation records the URL; selector lookups run against the
// parsed document immediately (timeouts are ignored).
type FakeSession struct {
	HTML      string
	PageTitle string

	// NavigateErr, if set, makes Navigate fail.
	NavigateErr error
	// Blocked HTML to swap in after the first Navigate, simulating an
	// interstitial that persists across an evasion retry.
	BlockedHTML string

	NavigatedURLs []string
	Evaluated     []string
	Clicked       []string
	MouseMoves    int
	Closed        bool

	doc *goquery.Document
}

func New(html string) *FakeSession {
	return &FakeSession{HTML: html}
}

func (s *FakeSession) document() (*goquery.Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return doc, nil
}

func (s *FakeSession) Navigate(url string, _ time.Duration) error {
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.NavigatedURLs = append(s.NavigatedURLs, url)
	if s.BlockedHTML != "" {
		s.HTML = s.BlockedHTML
		s.doc = nil
	}
	return nil
}

func (s *FakeSession) Content() (string, error) {
	return s.HTML, nil
}

func (s *FakeSession) Title() (string, error) {
	if s.PageTitle != "" {
		return s.PageTitle, nil
	}
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (s *FakeSession) Text(query string, _ time.Duration) (string, error) {
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	sel := doc.Find(query).First()
	if sel.Length() == 0 {
		return "", errors.New("no element matches " + query)
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (s *FakeSession) Attr(query, attr string, _ time.Duration) (string, error) {
	doc, err := s.document()
	if err != nil {
		return "", err
	}
	sel := doc.Find(query).First()
	if sel.Length() == 0 {
		return "", errors.New("no element matches " + query)
	}
	value, ok := sel.Attr(attr)
	if !ok {
		return "", errors.New("attribute " + attr + " not present")
	}
	return strings.TrimSpace(value), nil
}

func (s *FakeSession) Click(query string, _ time.Duration) error {
	doc, err := s.document()
	if err != nil {
		return err
	}
	if doc.Find(query).Length() == 0 {
		return errors.New("no element matches " + query)
	}
	s.Clicked = append(s.Clicked, query)
	return nil
}

func (s *FakeSession) Evaluate(js string) (any, error) {
	s.Evaluated = append(s.Evaluated, js)
	return nil, nil
}

func (s *FakeSession) MouseMove(x, y float64) error {
	s.MouseMoves++
	return nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}

// FakeFactory hands out pre-built sessions in order. When the list is
// exhausted it returns an error, matching a browser that refuses new
// contexts.
type FakeFactory struct {
	Sessions []*FakeSession
	next     int
}

func (f *FakeFactory) NewSession() (browser.Session, error) {
	if f.next >= len(f.Sessions) {
		return nil, errors.New("no more sessions")
	}
	s := f.Sessions[f.next]
	f.next++
	return s, nil
}
