package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"

	"github.com/use-agent/shopwalk/dom"
)

// Page adapts a rod page to dom.Page. Lookups never wait: an element that
// has not rendered yet is simply absent.
type Page struct {
	page *rod.Page
}

// Query implements dom.Scope.
func (p *Page) Query(loc dom.Locator) ([]dom.Element, error) {
	var (
		els rod.Elements
		err error
	)
	switch loc.Kind {
	case dom.CSS:
		els, err = p.page.Elements(loc.Expr)
	case dom.Text:
		els, err = p.page.ElementsX("//*" + ownTextPredicate(loc.Contains))
	default:
		return nil, fmt.Errorf("browser: unsupported locator kind %s", loc.Kind)
	}
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

// Scroll implements dom.Page.
func (p *Page) Scroll(to dom.ScrollTarget) error {
	js := `() => window.scrollTo(0, 0)`
	if to == dom.Bottom {
		js = `() => window.scrollTo(0, document.body.scrollHeight)`
	}
	_, err := p.page.Eval(js)
	return err
}

// Title implements dom.Page.
func (p *Page) Title() (string, error) {
	return evalString(p.page, `() => document.title`)
}

// URL implements dom.Page.
func (p *Page) URL() (string, error) {
	return evalString(p.page, `() => window.location.href`)
}

func evalString(page *rod.Page, js string) (string, error) {
	res, err := page.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Element adapts a rod element to dom.Element.
type Element struct {
	el *rod.Element
}

func wrap(els rod.Elements) []dom.Element {
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el}
	}
	return out
}

// Query implements dom.Scope over the element's descendants.
func (e *Element) Query(loc dom.Locator) ([]dom.Element, error) {
	var (
		els rod.Elements
		err error
	)
	switch loc.Kind {
	case dom.CSS:
		els, err = e.el.Elements(loc.Expr)
	case dom.Text:
		els, err = e.el.ElementsX(".//*" + ownTextPredicate(loc.Contains))
	default:
		return nil, fmt.Errorf("browser: unsupported locator kind %s", loc.Kind)
	}
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

// Text returns the rendered text (innerText).
func (e *Element) Text() (string, error) {
	return e.el.Text()
}

// Attribute implements dom.Element.
func (e *Element) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// TagName implements dom.Element.
func (e *Element) TagName() (string, error) {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// ScrollIntoView implements dom.Element.
func (e *Element) ScrollIntoView() error {
	return e.el.ScrollIntoView()
}

// Click dispatches the click from script, which is not intercepted by
// overlays covering the element.
func (e *Element) Click() error {
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

// ownTextPredicate matches elements having, for every part, a direct text
// node that contains it.
func ownTextPredicate(parts []string) string {
	conds := make([]string, len(parts))
	for i, part := range parts {
		conds[i] = "text()[contains(., " + xpathLiteral(part) + ")]"
	}
	return "[" + strings.Join(conds, " and ") + "]"
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
