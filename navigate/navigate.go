// Package navigate activates elements and follows the browsing context a
// click lands in, which may be a freshly opened tab.
package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/models"
)

// Outcome tells where a click left the session.
type Outcome int

const (
	// SameContext means no new context appeared; the active one may have
	// navigated in place.
	SameContext Outcome = iota
	// ContextChanged means a new context appeared and is now active.
	ContextChanged
)

func (o Outcome) String() string {
	if o == ContextChanged {
		return "context-changed"
	}
	return "same-context"
}

// Activate scrolls el into view and dispatches a synthetic click on it. A
// failed scroll is logged and the click is still attempted: the script click
// does not need the element on screen.
func Activate(el dom.Element) error {
	return activate(context.Background(), el, 0, nil, nil)
}

// activate is Activate with a settle between the scroll and the click.
func activate(ctx context.Context, el dom.Element, settle time.Duration, sleep clock.SleepFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := el.ScrollIntoView(); err != nil {
		logger.Debug("scroll into view failed, clicking anyway", "component", "navigate", "error", err)
	}
	if settle > 0 {
		if err := clock.Or(sleep)(ctx, settle); err != nil {
			return err
		}
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

// ClickThrough switches to the first context, in enumeration order, that has
// not been observed before. Every enumerated context becomes known.
//
// When a click opens several contexts at once the first one observed wins;
// browsers do not promise a stable order here.
func ClickThrough(tabs dom.Tabs) (Outcome, error) {
	ids, err := tabs.Contexts()
	if err != nil {
		return SameContext, fmt.Errorf("enumerate contexts: %w", err)
	}

	var fresh dom.ContextID
	for _, id := range ids {
		if fresh == "" && !tabs.Known(id) {
			fresh = id
		}
	}
	tabs.Remember(ids...)

	if fresh == "" {
		return SameContext, nil
	}
	if err := tabs.Switch(fresh); err != nil {
		return SameContext, fmt.Errorf("switch to %s: %w", fresh, err)
	}
	return ContextChanged, nil
}

// Options tune Follow.
type Options struct {
	// PreClickSettle is waited after scrolling the element into view.
	PreClickSettle time.Duration

	// ClickSettle is waited after the click, before contexts are enumerated.
	ClickSettle time.Duration

	Sleep  clock.SleepFunc
	Logger *slog.Logger
}

// Follow clicks el and makes the resulting context active. A click that
// cannot be delivered is a NAVIGATION_FAILED error.
func Follow(ctx context.Context, tabs dom.Tabs, el dom.Element, opts Options) (Outcome, error) {
	sleep := clock.Or(opts.Sleep)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// ── 1. Snapshot contexts so the new one can be told apart ────────
	ids, err := tabs.Contexts()
	if err != nil {
		return SameContext, models.NewScrapeError(models.ErrCodeNavigation, "failed to enumerate browsing contexts", err)
	}
	tabs.Remember(ids...)
	tabs.Remember(tabs.ActiveID())

	// ── 2. Scroll, settle, click ─────────────────────────────────────
	if err := activate(ctx, el, opts.PreClickSettle, sleep, logger); err != nil {
		if ctx.Err() != nil {
			return SameContext, err
		}
		return SameContext, models.NewScrapeError(models.ErrCodeNavigation, "failed to click element", err)
	}
	if err := sleep(ctx, opts.ClickSettle); err != nil {
		return SameContext, err
	}

	// ── 3. Switch to the context the click opened, if any ────────────
	outcome, err := ClickThrough(tabs)
	if err != nil {
		return outcome, models.NewScrapeError(models.ErrCodeNavigation, "failed to switch browsing context", err)
	}
	logger.Debug("followed element", "component", "navigate", "outcome", outcome.String(), "active", string(tabs.ActiveID()))
	return outcome, nil
}
