// Package pagination grows an infinite-scroll listing until enough items
// are rendered, the attempt budget runs out, or the page stops growing.
package pagination

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
)

// StopReason tells why Expand returned.
type StopReason string

const (
	StopTarget   StopReason = "target"
	StopAttempts StopReason = "attempts"
	StopNoGrowth StopReason = "no-growth"
	StopCanceled StopReason = "canceled"
)

// DefaultNoGrowthLimit is the number of consecutive cycles without new items
// after which the listing is considered exhausted.
const DefaultNoGrowthLimit = 10

// Options tune Expand.
type Options struct {
	// Settle is waited after each scroll.
	Settle time.Duration

	// NoGrowthLimit defaults to DefaultNoGrowthLimit.
	NoGrowthLimit int

	Sleep  clock.SleepFunc
	Logger *slog.Logger
}

// Result is the accumulated listing. Callers consume at most target items.
type Result struct {
	Items      []dom.Element
	Attempts   int
	Streak     int
	StopReason StopReason
}

// Take returns at most n items.
func (r Result) Take(n int) []dom.Element {
	if n < len(r.Items) {
		return r.Items[:n]
	}
	return r.Items
}

// Expand scrolls page until loc matches at least target elements.
//
// Each cycle scrolls to the top, settles, scrolls to the bottom, settles and
// re-queries. Any growth resets the no-growth streak; the item count never
// decreases between cycles. A cancelled context stops the loop and returns
// what was accumulated together with the context error.
func Expand(ctx context.Context, page dom.Page, loc dom.Locator, target, maxAttempts int, opts Options) (Result, error) {
	sleep := clock.Or(opts.Sleep)
	limit := opts.NoGrowthLimit
	if limit <= 0 {
		limit = DefaultNoGrowthLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pagination", "locator", loc.String())

	res := Result{Items: locator.ResolveAll(page, loc)}
	logger.Debug("initial listing", "count", len(res.Items), "target", target)

	for len(res.Items) < target {
		if res.Attempts >= maxAttempts {
			res.StopReason = StopAttempts
			return res, nil
		}
		res.Attempts++

		if err := cycle(ctx, page, opts.Settle, sleep, logger); err != nil {
			res.StopReason = StopCanceled
			return res, err
		}

		items := locator.ResolveAll(page, loc)
		if len(items) > len(res.Items) {
			logger.Debug("listing grew", "attempt", res.Attempts, "from", len(res.Items), "to", len(items))
			res.Items = items
			res.Streak = 0
			continue
		}

		res.Streak++
		logger.Debug("listing did not grow", "attempt", res.Attempts, "count", len(res.Items), "streak", res.Streak)
		if res.Streak >= limit {
			res.StopReason = StopNoGrowth
			return res, nil
		}
	}

	res.StopReason = StopTarget
	return res, nil
}

func cycle(ctx context.Context, page dom.Page, settle time.Duration, sleep clock.SleepFunc, logger *slog.Logger) error {
	for _, to := range []dom.ScrollTarget{dom.Top, dom.Bottom} {
		if err := page.Scroll(to); err != nil {
			logger.Debug("scroll failed", "error", err)
		}
		if err := sleep(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}
