package navigate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/dom/domtest"
	"github.com/use-agent/shopwalk/models"
)

const search = `<html><body>
<div class="p-card-wrppr"><a class="blank" href="/p/new-tab" target="_blank">New tab</a></div>
<div class="p-card-wrppr"><a class="inplace" href="/p/same-tab">Same tab</a></div>
<div class="p-card-wrppr"><span class="dead">No link</span></div>
</body></html>`

func newBrowser(t *testing.T) *domtest.Browser {
	t.Helper()
	b := domtest.NewBrowser(nil)
	b.Route("https://shop.test/sr?q=x", search, nil)
	b.Route("/p/new-tab", `<html><body><h1 class="product-title">New</h1></body></html>`, nil)
	b.Route("/p/same-tab", `<html><body><h1 class="product-title">Same</h1></body></html>`, nil)
	require.NoError(t, b.Navigate(context.Background(), "https://shop.test/sr?q=x"))
	return b
}

func first(t *testing.T, scope dom.Scope, selector string) dom.Element {
	t.Helper()
	els, err := scope.Query(dom.ByCSS(selector))
	require.NoError(t, err)
	require.NotEmpty(t, els)
	return els[0]
}

func TestClickThroughNewContext(t *testing.T) {
	b := newBrowser(t)
	main := b.ActiveID()
	ids, _ := b.Contexts()
	b.Remember(ids...)

	require.NoError(t, Activate(first(t, b.Active(), "a.blank")))

	outcome, err := ClickThrough(b)
	require.NoError(t, err)
	assert.Equal(t, ContextChanged, outcome)
	assert.NotEqual(t, main, b.ActiveID())

	u, _ := b.Active().URL()
	assert.Equal(t, "/p/new-tab", u)

	// everything enumerated is now known, a second call finds nothing new
	outcome, err = ClickThrough(b)
	require.NoError(t, err)
	assert.Equal(t, SameContext, outcome)
}

func TestClickThroughSameContext(t *testing.T) {
	b := newBrowser(t)
	main := b.ActiveID()
	b.Remember(main)

	require.NoError(t, Activate(first(t, b.Active(), "a.inplace")))

	outcome, err := ClickThrough(b)
	require.NoError(t, err)
	assert.Equal(t, SameContext, outcome)
	assert.Equal(t, main, b.ActiveID())

	u, _ := b.Active().URL()
	assert.Equal(t, "/p/same-tab", u)
}

func TestClickThroughFirstObservedWins(t *testing.T) {
	b := newBrowser(t)
	ids, _ := b.Contexts()
	b.Remember(ids...)

	second := b.Open("/p/new-tab")
	b.Open("/p/same-tab")

	outcome, err := ClickThrough(b)
	require.NoError(t, err)
	assert.Equal(t, ContextChanged, outcome)
	assert.Equal(t, second, b.ActiveID())
}

func TestFollow(t *testing.T) {
	b := newBrowser(t)
	rec := &clock.Recorder{}

	outcome, err := Follow(context.Background(), b, first(t, b.Active(), "a.blank"), Options{
		PreClickSettle: time.Second,
		ClickSettle:    3 * time.Second,
		Sleep:          rec.Sleep,
	})
	require.NoError(t, err)
	assert.Equal(t, ContextChanged, outcome)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, rec.Delays)

	titles, _ := b.Active().Query(dom.ByCSS(".product-title"))
	require.Len(t, titles, 1)
}

func TestFollowClickFailure(t *testing.T) {
	b := newBrowser(t)
	el := first(t, b.Active(), "span.dead")
	b.ActivePage().Remove(".p-card-wrppr")

	_, err := Follow(context.Background(), b, el, Options{Sleep: (&clock.Recorder{}).Sleep})
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeNavigation, se.Code)
	assert.ErrorIs(t, err, dom.ErrDetached)
}

func TestActivateDetached(t *testing.T) {
	b := newBrowser(t)
	el := first(t, b.Active(), "a.blank")
	b.ActivePage().Remove("a")

	assert.ErrorIs(t, Activate(el), dom.ErrDetached)
	assert.Zero(t, b.ActivePage().Clicks())
}

// unscrollable is an element that cannot be scrolled to but still takes
// clicks, like one inside a fixed overlay.
type unscrollable struct {
	dom.Element
	clicks int
}

func (u *unscrollable) ScrollIntoView() error { return errors.New("element has no layout") }

func (u *unscrollable) Click() error {
	u.clicks++
	return nil
}

func TestActivateClicksWhenScrollFails(t *testing.T) {
	el := &unscrollable{}
	require.NoError(t, Activate(el))
	assert.Equal(t, 1, el.clicks)
}

func TestFollowClicksWhenScrollFails(t *testing.T) {
	b := newBrowser(t)
	el := &unscrollable{}
	rec := &clock.Recorder{}

	outcome, err := Follow(context.Background(), b, el, Options{
		PreClickSettle: time.Second,
		ClickSettle:    3 * time.Second,
		Sleep:          rec.Sleep,
	})
	require.NoError(t, err)
	assert.Equal(t, SameContext, outcome)
	assert.Equal(t, 1, el.clicks)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, rec.Delays)
}
