// Package dom defines the minimal live-document surface the extraction engine
// works against. Implementations wrap a real browser (package browser) or an
// in-memory fixture (package dom/domtest); the engine never sees either directly.
package dom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDetached is returned by an Element whose node has left the document
// (re-render, navigation). Callers treat it like any other lookup miss.
var ErrDetached = errors.New("dom: element detached")

// Kind selects how a Locator is matched.
type Kind int

const (
	// CSS matches elements with a CSS selector.
	CSS Kind = iota
	// Text matches elements whose own text contains every entry of Contains.
	Text
)

func (k Kind) String() string {
	switch k {
	case CSS:
		return "css"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Locator is one candidate expression for finding elements.
type Locator struct {
	Kind Kind

	// Expr is the CSS selector for CSS locators.
	Expr string

	// Contains lists the substrings a Text locator requires (case-sensitive).
	Contains []string
}

// ByCSS returns a CSS locator.
func ByCSS(selector string) Locator {
	return Locator{Kind: CSS, Expr: selector}
}

// ByText returns a locator matching elements whose own text contains all parts.
func ByText(parts ...string) Locator {
	return Locator{Kind: Text, Contains: parts}
}

func (l Locator) String() string {
	if l.Kind == Text {
		return "text(" + strings.Join(l.Contains, " & ") + ")"
	}
	return l.Expr
}

// MatchesText reports whether s contains every substring a Text locator requires.
// An empty requirement never matches.
func (l Locator) MatchesText(s string) bool {
	if len(l.Contains) == 0 {
		return false
	}
	for _, part := range l.Contains {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}

// Scope is anything elements can be looked up in: a whole page or an element.
//
// Query performs a single, non-waiting lookup. An empty result is not an error.
type Scope interface {
	Query(loc Locator) ([]Element, error)
}

// Element is a transient handle to one node of a live document.
type Element interface {
	Scope

	// Text returns the rendered text of the element and its descendants.
	Text() (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)

	// TagName returns the lower-case tag name.
	TagName() (string, error)

	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView() error

	// Click dispatches a synthetic click event on the element (no pointer movement).
	Click() error
}

// ScrollTarget is where Page.Scroll moves the viewport.
type ScrollTarget int

const (
	Top ScrollTarget = iota
	Bottom
)

// Page is the document of the active browsing context.
type Page interface {
	Scope

	// Scroll moves the viewport to the top or the bottom of the document.
	Scroll(to ScrollTarget) error

	// Title returns document.title.
	Title() (string, error)

	// URL returns the current location.
	URL() (string, error)
}

// ContextID identifies one browsing context (tab) of a session.
type ContextID string

// Tabs is the set of browsing contexts owned by one session.
type Tabs interface {
	// Contexts enumerates every open context in browser order.
	Contexts() ([]ContextID, error)

	// Known reports whether the context has been observed before.
	Known(id ContextID) bool

	// Remember marks contexts as observed.
	Remember(ids ...ContextID)

	// Switch makes the context active.
	Switch(id ContextID) error

	// ActiveID returns the active context.
	ActiveID() ContextID

	// Active returns the document of the active context.
	Active() Page
}
