package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
	"github.com/use-agent/shopwalk/navigate"
)

// DefaultReviewCap is the number of review containers read.
const DefaultReviewCap = 20

// Reviews reads the first limit review containers. Each review is the
// space-joined text of its paragraphs; containers without paragraph text are
// skipped. IDs are 1-based container positions, so skipped containers leave
// gaps.
func Reviews(scope dom.Scope, container, paragraph dom.Locator, limit int) []models.Review {
	containers := locator.ResolveAll(scope, container)
	if limit > 0 && len(containers) > limit {
		containers = containers[:limit]
	}

	reviews := make([]models.Review, 0, len(containers))
	for i, c := range containers {
		var parts []string
		for _, p := range locator.ResolveAll(c, paragraph) {
			text, err := p.Text()
			if err != nil {
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		reviews = append(reviews, models.Review{ID: i + 1, Text: strings.Join(parts, " ")})
	}
	return reviews
}

// WaitForAny polls scope for loc up to attempts times, delay apart, and
// returns the first non-empty result. An empty slice means nothing appeared.
func WaitForAny(ctx context.Context, scope dom.Scope, loc dom.Locator, attempts int, delay time.Duration, sleep clock.SleepFunc) ([]dom.Element, error) {
	sleep = clock.Or(sleep)
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return []dom.Element{}, err
			}
		}
		if els := locator.ResolveAll(scope, loc); len(els) > 0 {
			return els, nil
		}
	}
	return []dom.Element{}, nil
}

// RevealOutcome tells how the review list was made visible.
type RevealOutcome int

const (
	// Unavailable means no control was found and no reviews are rendered.
	Unavailable RevealOutcome = iota
	// Clicked means a "show all reviews" control was activated.
	Clicked
	// AlreadyPresent means review containers were rendered without a click.
	AlreadyPresent
)

func (o RevealOutcome) String() string {
	switch o {
	case Clicked:
		return "clicked"
	case AlreadyPresent:
		return "already-present"
	default:
		return "unavailable"
	}
}

// RevealOptions tune RevealReviews.
type RevealOptions struct {
	// Text lists the substrings the control's own text must contain.
	Text []string

	// Fallback is scanned when no element's own text matches; a candidate
	// qualifies when its full text contains every entry of Text.
	Fallback locator.Chain

	// Container is the review container locator used for the presence check.
	Container dom.Locator

	// Attempts bounds the Fallback scan, Delay apart.
	Attempts int
	Delay    time.Duration

	Sleep  clock.SleepFunc
	Logger *slog.Logger
}

// RevealReviews looks for the "show all reviews" control and clicks it. When
// there is none it checks whether reviews are already on the page.
func RevealReviews(ctx context.Context, page dom.Page, opts RevealOptions) (RevealOutcome, error) {
	sleep := clock.Or(opts.Sleep)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reveal")
	text := dom.ByText(opts.Text...)

	// ── 1. Own-text match ────────────────────────────────────────────
	if len(opts.Text) > 0 {
		for _, el := range locator.ResolveAll(page, text) {
			if err := navigate.Activate(el); err != nil {
				logger.Debug("reveal click failed", "locator", text.String(), "error", err)
				continue
			}
			return Clicked, nil
		}
	}

	// ── 2. Class-pattern candidates, bounded polling ────────────────
	for attempt := 0; attempt < opts.Attempts && len(opts.Text) > 0; attempt++ {
		if err := sleep(ctx, opts.Delay); err != nil {
			return Unavailable, err
		}
		if el, ok := findControl(opts.Fallback, page, text); ok {
			if err := navigate.Activate(el); err != nil {
				logger.Debug("reveal click failed", "attempt", attempt+1, "error", err)
				continue
			}
			return Clicked, nil
		}
	}

	// ── 3. Reviews rendered without a control ────────────────────────
	if len(locator.ResolveAll(page, opts.Container)) > 0 {
		return AlreadyPresent, nil
	}
	logger.Info("no review control and no reviews on page")
	return Unavailable, nil
}

func findControl(chain locator.Chain, scope dom.Scope, text dom.Locator) (dom.Element, bool) {
	for _, loc := range chain {
		for _, el := range locator.ResolveAll(scope, loc) {
			t, err := el.Text()
			if err != nil {
				continue
			}
			if text.MatchesText(strings.TrimSpace(t)) {
				return el, true
			}
		}
	}
	return nil, false
}
