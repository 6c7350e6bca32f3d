// Package locator resolves ordered candidate chains against a live document.
//
// A chain is tried front to back and the first candidate that yields at least
// one element wins; the remaining candidates are never queried. A lookup that
// fails is treated as a miss, so a broken or stale selector only costs one
// round trip.
package locator

import (
	"fmt"
	"log/slog"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/shopwalk/dom"
)

// Chain is an ordered list of candidates, most specific first.
type Chain []dom.Locator

// CSS builds a chain of CSS candidates.
func CSS(selectors ...string) Chain {
	c := make(Chain, len(selectors))
	for i, s := range selectors {
		c[i] = dom.ByCSS(s)
	}
	return c
}

// Match is the winning candidate of a chain and everything it matched.
type Match struct {
	Locator  dom.Locator
	Index    int
	Elements []dom.Element
}

// Resolve returns the first element of the first candidate that matches.
func Resolve(scope dom.Scope, chain Chain) (dom.Element, bool) {
	m, ok := ResolveFirst(scope, chain)
	if !ok {
		return nil, false
	}
	return m.Elements[0], true
}

// ResolveFirst returns the first candidate with a non-empty result along
// with all of its elements.
func ResolveFirst(scope dom.Scope, chain Chain) (Match, bool) {
	for i, loc := range chain {
		els := ResolveAll(scope, loc)
		if len(els) > 0 {
			return Match{Locator: loc, Index: i, Elements: els}, true
		}
	}
	return Match{}, false
}

// ResolveAll returns every element matching loc. A failed lookup yields an
// empty slice.
func ResolveAll(scope dom.Scope, loc dom.Locator) []dom.Element {
	els, err := scope.Query(loc)
	if err != nil {
		slog.Debug("locator lookup failed", "locator", loc.String(), "error", err)
		return []dom.Element{}
	}
	if els == nil {
		return []dom.Element{}
	}
	return els
}

// ResolveWhere returns the first element of the first candidate whose first
// match satisfies accept. When no candidate is accepted, the first element of
// the last candidate that matched anything is returned instead.
func ResolveWhere(scope dom.Scope, chain Chain, accept func(dom.Element) bool) (dom.Element, bool) {
	var fallback dom.Element
	for _, loc := range chain {
		els := ResolveAll(scope, loc)
		if len(els) == 0 {
			continue
		}
		if accept(els[0]) {
			return els[0], true
		}
		fallback = els[0]
	}
	return fallback, fallback != nil
}

// Validate parses every CSS candidate of the chains and reports the first
// one cascadia rejects.
func Validate(chains ...Chain) error {
	for _, chain := range chains {
		for i, loc := range chain {
			switch loc.Kind {
			case dom.CSS:
				if _, err := cascadia.Compile(loc.Expr); err != nil {
					return fmt.Errorf("locator: candidate %d %q: %w", i, loc.Expr, err)
				}
			case dom.Text:
				if len(loc.Contains) == 0 {
					return fmt.Errorf("locator: candidate %d: text locator without substrings", i)
				}
			default:
				return fmt.Errorf("locator: candidate %d: unknown kind %s", i, loc.Kind)
			}
		}
	}
	return nil
}
