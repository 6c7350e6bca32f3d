package domtest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/shopwalk/dom"
)

// Element is a fixture node handle.
type Element struct {
	page *Page
	sel  *goquery.Selection
}

// Query implements dom.Scope over the element's descendants.
func (e *Element) Query(loc dom.Locator) ([]dom.Element, error) {
	if err := e.attached(); err != nil {
		return nil, err
	}
	return e.page.query(e.sel, loc)
}

// Text returns the trimmed text content of the element.
func (e *Element) Text() (string, error) {
	if err := e.attached(); err != nil {
		return "", err
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

// Attribute implements dom.Element.
func (e *Element) Attribute(name string) (string, bool, error) {
	if err := e.attached(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// TagName implements dom.Element.
func (e *Element) TagName() (string, error) {
	if err := e.attached(); err != nil {
		return "", err
	}
	return goquery.NodeName(e.sel), nil
}

// ScrollIntoView is a no-op beyond the detachment check.
func (e *Element) ScrollIntoView() error {
	return e.attached()
}

// Click runs the page's click hooks and follows anchors when the page
// belongs to a Browser.
func (e *Element) Click() error {
	if err := e.attached(); err != nil {
		return err
	}
	e.page.clicked(e.sel)
	return nil
}

// attached reports dom.ErrDetached once the node has been removed from its
// document.
func (e *Element) attached() error {
	n := e.sel.Get(0)
	root := e.page.doc.Get(0)
	for ; n != nil; n = n.Parent {
		if n == root {
			return nil
		}
	}
	return dom.ErrDetached
}
