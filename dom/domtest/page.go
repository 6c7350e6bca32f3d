// Package domtest provides an in-memory implementation of the dom interfaces
// backed by goquery documents. Pages can grow on scroll, react to clicks and
// open new tabs, and they count every lookup so tests can assert which
// candidates were tried.
package domtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/shopwalk/dom"
)

// ErrLookup is returned for selectors registered with FailOn.
var ErrLookup = errors.New("domtest: lookup failed")

// Page is a fixture document. The zero value is not usable; use NewPage.
type Page struct {
	mu sync.Mutex

	doc *goquery.Document
	url string

	browser *Browser

	queries  map[string]int
	queryLog []string
	failing  map[string]error
	scrolls  map[dom.ScrollTarget]int
	onScroll []func(*Page)
	onClick  []clickHook
	clicks   int
}

type clickHook struct {
	selector string
	fn       func(*Page)
}

// NewPage parses markup into a page located at url.
func NewPage(url, markup string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("domtest: parse page: %w", err)
	}
	return &Page{
		doc:     doc,
		url:     url,
		queries: make(map[string]int),
		failing: make(map[string]error),
		scrolls: make(map[dom.ScrollTarget]int),
	}, nil
}

// MustPage is NewPage that panics on malformed markup.
func MustPage(url, markup string) *Page {
	p, err := NewPage(url, markup)
	if err != nil {
		panic(err)
	}
	return p
}

// Query implements dom.Scope over the whole document.
func (p *Page) Query(loc dom.Locator) ([]dom.Element, error) {
	return p.query(p.doc.Selection, loc)
}

// Scroll implements dom.Page. Hooks registered with OnScrollBottom run on
// every scroll to the bottom.
func (p *Page) Scroll(to dom.ScrollTarget) error {
	p.mu.Lock()
	p.scrolls[to]++
	hooks := append([]func(*Page){}, p.onScroll...)
	p.mu.Unlock()

	if to == dom.Bottom {
		for _, fn := range hooks {
			fn(p)
		}
	}
	return nil
}

// Title implements dom.Page.
func (p *Page) Title() (string, error) {
	return strings.TrimSpace(p.doc.Find("title").First().Text()), nil
}

// URL implements dom.Page.
func (p *Page) URL() (string, error) {
	return p.url, nil
}

// OnScrollBottom registers fn to run each time the page scrolls to the bottom.
func (p *Page) OnScrollBottom(fn func(*Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onScroll = append(p.onScroll, fn)
}

// OnClick registers fn to run when an element matching selector is clicked.
func (p *Page) OnClick(selector string, fn func(*Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick = append(p.onClick, clickHook{selector: selector, fn: fn})
}

// FailOn makes every lookup of the CSS selector return ErrLookup.
func (p *Page) FailOn(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing[selector] = ErrLookup
}

// Append parses markup and appends it to every element matching selector.
func (p *Page) Append(selector, markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).AppendHtml(markup)
}

// Remove deletes every element matching selector.
func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).Remove()
}

// Queries returns how many lookups used the locator.
func (p *Page) Queries(loc dom.Locator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[loc.String()]
}

// QueryLog returns every lookup in order.
func (p *Page) QueryLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queryLog...)
}

// Scrolls returns how many times the page scrolled to the target.
func (p *Page) Scrolls(to dom.ScrollTarget) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls[to]
}

// Clicks returns how many elements of the page were clicked.
func (p *Page) Clicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks
}

func (p *Page) query(root *goquery.Selection, loc dom.Locator) ([]dom.Element, error) {
	p.mu.Lock()
	key := loc.String()
	p.queries[key]++
	p.queryLog = append(p.queryLog, key)
	failErr := p.failing[key]
	p.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}

	var found *goquery.Selection
	switch loc.Kind {
	case dom.CSS:
		m, err := cascadia.Compile(loc.Expr)
		if err != nil {
			return nil, fmt.Errorf("domtest: selector %q: %w", loc.Expr, err)
		}
		found = root.FindMatcher(m)
	case dom.Text:
		found = root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return loc.MatchesText(ownText(s.Get(0)))
		})
	default:
		return nil, fmt.Errorf("domtest: unsupported locator kind %s", loc.Kind)
	}

	out := make([]dom.Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{page: p, sel: s})
	})
	return out, nil
}

// ownText concatenates the direct text children of n.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func (p *Page) clicked(s *goquery.Selection) {
	p.mu.Lock()
	p.clicks++
	var hooks []func(*Page)
	for _, h := range p.onClick {
		if s.Is(h.selector) {
			hooks = append(hooks, h.fn)
		}
	}
	b := p.browser
	p.mu.Unlock()

	for _, fn := range hooks {
		fn(p)
	}

	if b == nil || goquery.NodeName(s) != "a" {
		return
	}
	href, ok := s.Attr("href")
	if !ok || href == "" {
		return
	}
	if target, _ := s.Attr("target"); target == "_blank" {
		b.openTab(href)
		return
	}
	b.follow(href)
}
