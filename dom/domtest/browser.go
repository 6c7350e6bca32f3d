package domtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/use-agent/shopwalk/dom"
)

// Browser is a fixture session: a set of tabs plus a route table mapping
// URLs to markup. It implements dom.Tabs along with the Navigate and Close
// methods a scraping session exposes.
type Browser struct {
	mu sync.Mutex

	routes map[string]string
	setup  map[string]func(*Page)

	order  []dom.ContextID
	pages  map[dom.ContextID]*Page
	known  map[dom.ContextID]bool
	active dom.ContextID
	nextID int

	navigations []string
	closes      int

	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error
}

// NewBrowser returns a browser with a single blank tab.
func NewBrowser(routes map[string]string) *Browser {
	b := &Browser{
		routes: routes,
		setup:  make(map[string]func(*Page)),
		pages:  make(map[dom.ContextID]*Page),
		known:  make(map[dom.ContextID]bool),
	}
	if b.routes == nil {
		b.routes = make(map[string]string)
	}
	b.active = b.addTab(MustPage("about:blank", "<html><body></body></html>"))
	return b
}

// Route registers markup for url. setup, when non-nil, runs on every page
// loaded from that route, which is where tests attach scroll and click hooks.
func (b *Browser) Route(url, markup string, setup func(*Page)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[url] = markup
	if setup != nil {
		b.setup[url] = setup
	}
}

// Navigate loads the route for url into the active tab.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.navigations = append(b.navigations, url)
	navErr := b.NavigateErr
	b.mu.Unlock()
	if navErr != nil {
		return navErr
	}

	p, err := b.load(url)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.pages[b.active] = p
	b.mu.Unlock()
	return nil
}

// Close counts teardowns.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

// Closes returns how many times Close ran.
func (b *Browser) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Navigations returns every URL passed to Navigate.
func (b *Browser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigations...)
}

// Contexts implements dom.Tabs.
func (b *Browser) Contexts() ([]dom.ContextID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dom.ContextID(nil), b.order...), nil
}

// Known implements dom.Tabs.
func (b *Browser) Known(id dom.ContextID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.known[id]
}

// Remember implements dom.Tabs.
func (b *Browser) Remember(ids ...dom.ContextID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.known[id] = true
	}
}

// Switch implements dom.Tabs.
func (b *Browser) Switch(id dom.ContextID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pages[id]; !ok {
		return fmt.Errorf("domtest: no context %q", id)
	}
	b.active = id
	return nil
}

// ActiveID implements dom.Tabs.
func (b *Browser) ActiveID() dom.ContextID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Active implements dom.Tabs.
func (b *Browser) Active() dom.Page {
	return b.ActivePage()
}

// ActivePage returns the fixture page of the active tab.
func (b *Browser) ActivePage() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[b.active]
}

// Open adds a background tab showing the route for url and returns its id.
func (b *Browser) Open(url string) dom.ContextID {
	return b.openTab(url)
}

func (b *Browser) load(url string) (*Page, error) {
	b.mu.Lock()
	markup, ok := b.routes[url]
	setup := b.setup[url]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("domtest: no route for %q", url)
	}

	p, err := NewPage(url, markup)
	if err != nil {
		return nil, err
	}
	p.browser = b
	if setup != nil {
		setup(p)
	}
	return p, nil
}

func (b *Browser) addTab(p *Page) dom.ContextID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := dom.ContextID(fmt.Sprintf("tab-%d", b.nextID))
	p.browser = b
	b.order = append(b.order, id)
	b.pages[id] = p
	return id
}

func (b *Browser) openTab(url string) dom.ContextID {
	p, err := b.load(url)
	if err != nil {
		p = MustPage(url, "<html><body></body></html>")
	}
	return b.addTab(p)
}

func (b *Browser) follow(url string) {
	p, err := b.load(url)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.pages[b.active] = p
	b.mu.Unlock()
}
