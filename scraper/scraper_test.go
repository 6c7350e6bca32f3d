package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/dom/domtest"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
)

const searchURL = "https://www.trendyol.com/sr?q=laptop"

func testConfig() *config.Config {
	return &config.Config{
		Site: config.SiteConfig{
			BaseURL:         "https://www.trendyol.com",
			SearchPath:      "/sr?q=",
			ChallengeMarker: "cloudflare",
			RevealText:      []string{"TÜM", "YORUM"},
		},
		Timing: config.TimingConfig{
			InitialSettle:      10 * time.Second,
			ChallengeWait:      15 * time.Second,
			ScrollSettle:       time.Second,
			NoGrowthLimit:      10,
			PreClickSettle:     time.Second,
			ClickSettle:        3 * time.Second,
			ExtractAttempts:    5,
			ExtractRetryDelay:  time.Second,
			ReviewPollAttempts: 5,
			ReviewPollDelay:    time.Second,
			RevealAttempts:     5,
		},
		Scraper: config.ScraperConfig{
			OperationTimeout: 5 * time.Second,
			MaxSessions:      2,
			ReviewCap:        20,
			FeatureCap:       15,
		},
	}
}

func card(i int) string {
	return fmt.Sprintf(`<div class="p-card-wrppr"><a href="/p/laptop-%d" target="_blank">`+
		`<span class="prdct-desc-cntnr-name">Laptop %d</span>`+
		`<div class="product-desc-sub-text">16GB RAM</div>`+
		`<div class="prc-box-dscntd">%d.999 TL</div></a></div>`, i, i, i)
}

func listingPage(title string, n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString(card(i))
	}
	return `<html><head><title>` + title + `</title></head><body><div class="prdct-cntnr-wrppr">` +
		b.String() + `</div></body></html>`
}

// growBy appends per new cards on every scroll to the bottom.
func growBy(first, per int) func(*domtest.Page) {
	return func(p *domtest.Page) {
		next := first
		p.OnScrollBottom(func(p *domtest.Page) {
			var b strings.Builder
			for i := 0; i < per; i++ {
				b.WriteString(card(next))
				next++
			}
			p.Append(".prdct-cntnr-wrppr", b.String())
		})
	}
}

const productPage = `<html><head><title>Laptop 1 - Trendyol</title></head><body>
<h1 class="product-title">Laptop 1</h1>
<a class="product-title-brand-name-anchor">Acme</a>
<div class="prc-box-dscntd">1.999 TL</div>
<div class="content-description-container"><p>Fast and light.</p></div>
<ul class="detail-attr"><li class="attribute-item">RAM:16GB</li><li>Color Black</li></ul>
<div class="rating-score">4.5</div>
<div class="stock-info">In stock</div>
<div class="product-image-gallery-carousel">
  <img src="https://cdn.test/1.jpg" alt="front" class="gallery-img">
  <img src="data:image/gif;base64,R0lGOD" data-src="https://cdn.test/2.jpg" alt="back">
</div>
<button class="show-more-button">TÜM YORUMLARI GÖSTER</button>
</body></html>`

const reviewMarkup = `<div class="comment-text"><p>Great laptop</p></div>
<div class="comment-text"></div>
<div class="comment-text"><p>Fast</p><p>shipping</p></div>`

// harness opens a fresh fixture browser for every session and keeps them all.
type harness struct {
	mu       sync.Mutex
	build    func() *domtest.Browser
	browsers []*domtest.Browser
	openErr  error
}

func (h *harness) Open(ctx context.Context) (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	b := h.build()
	h.browsers = append(h.browsers, b)
	return b, nil
}

func (h *harness) last() *domtest.Browser {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.browsers[len(h.browsers)-1]
}

func (h *harness) opened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.browsers)
}

func newScraper(t *testing.T, cfg *config.Config, h *harness, rec *clock.Recorder) *Scraper {
	t.Helper()
	s, err := New(cfg, WithSessionFactory(h), WithSleep(rec.Sleep))
	require.NoError(t, err)
	return s
}

func scrapeCode(t *testing.T, err error) string {
	t.Helper()
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se), "expected ScrapeError, got %v", err)
	return se.Code
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t, searchURL, SearchURL("https://www.trendyol.com/", "/sr?q=", "laptop"))
	assert.Equal(t, "https://www.trendyol.com/sr?q=gaming+laptop+%C3%A7anta", SearchURL("https://www.trendyol.com", "/sr?q=", "gaming laptop çanta"))
}

func TestSearchListing_GrowsToTarget(t *testing.T) {
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("laptop - Trendyol", 8), growBy(9, 6))
		return b
	}}
	rec := &clock.Recorder{}
	s := newScraper(t, testConfig(), h, rec)

	res, err := s.SearchListing(context.Background(), "laptop", 20, 10)
	require.NoError(t, err)

	require.Len(t, res.Items, 20)
	assert.Equal(t, models.ListingItem{Name: "Laptop 1", Description: "16GB RAM", Price: "1.999 TL"}, res.Items[0])
	assert.Equal(t, "Laptop 20", res.Items[19].Name)
	assert.Equal(t, 2, res.Pagination.Attempts)
	assert.Equal(t, "target", res.Pagination.StopReason)
	assert.Nil(t, res.Diagnostics)

	b := h.last()
	assert.Equal(t, []string{searchURL}, b.Navigations())
	assert.Equal(t, 1, b.Closes())
	assert.Equal(t, 10*time.Second, rec.Delays[0])
	assert.Equal(t, 0, s.Stats().ActiveSessions)
}

func TestSearchListing_Defaults(t *testing.T) {
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("laptop - Trendyol", 8), nil)
		return b
	}}
	rec := &clock.Recorder{}
	s := newScraper(t, testConfig(), h, rec)

	res, err := s.SearchListing(context.Background(), "laptop", 0, 0)
	require.NoError(t, err)

	assert.Len(t, res.Items, 8)
	assert.Equal(t, "no-growth", res.Pagination.StopReason)
	assert.Equal(t, 10, res.Pagination.Attempts)
}

func TestSearchListing_ChallengeWait(t *testing.T) {
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("Just a moment... | Cloudflare", 3), nil)
		return b
	}}
	rec := &clock.Recorder{}
	s := newScraper(t, testConfig(), h, rec)

	_, err := s.SearchListing(context.Background(), "laptop", 3, 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rec.Delays), 2)
	assert.Equal(t, []time.Duration{10 * time.Second, 15 * time.Second}, rec.Delays[:2])
}

func TestSearchListing_NoContainersCarriesDiagnostics(t *testing.T) {
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, `<html><head><title>Sonuç bulunamadı</title></head><body>
<div class="empty-result-title">Aradığınız ürün bulunamadı</div></body></html>`, nil)
		return b
	}}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.SearchListing(context.Background(), "laptop", 20, 10)
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	require.NotNil(t, res.Diagnostics)
	assert.Equal(t, "Sonuç bulunamadı", res.Diagnostics.Title)
	assert.Equal(t, searchURL, res.Diagnostics.URL)
	assert.Equal(t, []string{"Aradığınız ürün bulunamadı"}, res.Diagnostics.Samples)
	assert.Equal(t, 1, h.last().Closes())
}

func TestSearchListing_InvalidInputOpensNoSession(t *testing.T) {
	h := &harness{build: func() *domtest.Browser { return domtest.NewBrowser(nil) }}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	for _, tc := range []struct {
		name            string
		query           string
		target, attempt int
	}{
		{"empty query", "  ", 10, 10},
		{"target too large", "laptop", 101, 10},
		{"negative target", "laptop", -1, 10},
		{"attempts too large", "laptop", 10, 31},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SearchListing(context.Background(), tc.query, tc.target, tc.attempt)
			assert.Equal(t, models.ErrCodeInvalidInput, scrapeCode(t, err))
		})
	}
	assert.Equal(t, 0, h.opened())
}

func TestSearchListing_NavigationFailureTearsDown(t *testing.T) {
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		return b
	}}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	_, err := s.SearchListing(context.Background(), "laptop", 20, 10)
	assert.Equal(t, models.ErrCodeNavigation, scrapeCode(t, err))
	assert.Equal(t, 1, h.last().Closes())
	assert.Equal(t, 0, s.Stats().ActiveSessions)
}

func TestSearchListing_SessionOpenFailure(t *testing.T) {
	h := &harness{openErr: errors.New("chromium not found")}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	_, err := s.SearchListing(context.Background(), "laptop", 20, 10)
	assert.Equal(t, models.ErrCodeSession, scrapeCode(t, err))
}

func TestSearchListing_DeadlineTearsDown(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.OperationTimeout = 20 * time.Millisecond
	cfg.Timing.InitialSettle = time.Hour

	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("laptop", 1), nil)
		return b
	}}
	s, err := New(cfg, WithSessionFactory(h))
	require.NoError(t, err)

	_, err = s.SearchListing(context.Background(), "laptop", 5, 5)
	assert.Equal(t, models.ErrCodeTimeout, scrapeCode(t, err))
	assert.Equal(t, 1, h.last().Closes())
}

func productHarness(product string, setup func(*domtest.Page)) *harness {
	return &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("laptop - Trendyol", 3), nil)
		b.Route("/p/laptop-1", product, setup)
		return b
	}}
}

func TestGetProductDetails(t *testing.T) {
	h := productHarness(productPage, nil)
	rec := &clock.Recorder{}
	s := newScraper(t, testConfig(), h, rec)

	res, err := s.GetProductDetails(context.Background(), "laptop")
	require.NoError(t, err)

	assert.Equal(t, "/p/laptop-1", res.URL)
	assert.Equal(t, 1, res.Passes)
	assert.Empty(t, res.Missing)
	assert.Equal(t, "Laptop 1", res.Fields.TextOf(models.FieldTitle))
	assert.Equal(t, "Acme", res.Fields.TextOf(models.FieldBrand))
	assert.Equal(t, "1.999 TL", res.Fields.TextOf(models.FieldPrice))
	assert.Equal(t, "Fast and light.", res.Fields.TextOf(models.FieldDescription))
	assert.Equal(t, []string{"RAM: 16GB", "Color Black"}, res.Fields.ItemsOf(models.FieldFeatures))
	assert.Equal(t, "4.5", res.Fields.TextOf(models.FieldRating))
	assert.Equal(t, "In stock", res.Fields.TextOf(models.FieldStock))

	b := h.last()
	assert.Equal(t, "tab-2", string(b.ActiveID()))
	assert.Equal(t, 1, b.Closes())
}

func TestGetProductDetails_MissingFieldIsReported(t *testing.T) {
	noStock := strings.Replace(productPage, `<div class="stock-info">In stock</div>`, "", 1)
	h := productHarness(noStock, nil)
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.GetProductDetails(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Passes)
	assert.Equal(t, []string{models.FieldStock}, res.Missing)
	assert.False(t, res.Fields.Has(models.FieldStock))
}

func TestGetProductDetails_ClicksCardWithoutLink(t *testing.T) {
	h := &harness{}
	h.build = func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, `<html><head><title>laptop</title></head><body>
<div class="p-card-wrppr"><span class="prdct-desc-cntnr-name">Laptop 1</span></div></body></html>`,
			func(p *domtest.Page) {
				p.OnClick(".p-card-wrppr", func(*domtest.Page) { b.Open("/p/laptop-1") })
			})
		b.Route("/p/laptop-1", productPage, nil)
		return b
	}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.GetProductDetails(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Nil(t, res.Diagnostics)
	assert.Equal(t, "/p/laptop-1", res.URL)
	assert.Equal(t, "Laptop 1", res.Fields.TextOf(models.FieldTitle))
	assert.Empty(t, res.Missing)

	b := h.last()
	assert.Equal(t, "tab-2", string(b.ActiveID()))
	assert.Equal(t, 1, b.Closes())
}

func TestGetProductDetails_InvalidInput(t *testing.T) {
	h := &harness{build: func() *domtest.Browser { return domtest.NewBrowser(nil) }}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	_, err := s.GetProductDetails(context.Background(), "")
	assert.Equal(t, models.ErrCodeInvalidInput, scrapeCode(t, err))
	_, err = s.GetProductImages(context.Background(), " ")
	assert.Equal(t, models.ErrCodeInvalidInput, scrapeCode(t, err))
	_, err = s.GetProductReviews(context.Background(), "")
	assert.Equal(t, models.ErrCodeInvalidInput, scrapeCode(t, err))
	assert.Equal(t, 0, h.opened())
}

func TestGetProductImages(t *testing.T) {
	h := productHarness(productPage, nil)
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.GetProductImages(context.Background(), "laptop")
	require.NoError(t, err)

	require.Len(t, res.Images.Gallery, 2)
	require.NotNil(t, res.Images.Primary)
	assert.Equal(t, models.ImageInfo{Src: "https://cdn.test/1.jpg", Alt: "front", Class: "gallery-img"}, *res.Images.Primary)
	assert.Equal(t, "https://cdn.test/2.jpg", res.Images.Gallery[1].Src)
	assert.Nil(t, res.Diagnostics)
}

func TestGetProductReviews_RevealsThenReads(t *testing.T) {
	h := productHarness(productPage, func(p *domtest.Page) {
		p.OnClick("button", func(p *domtest.Page) { p.Append("body", reviewMarkup) })
	})
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.GetProductReviews(context.Background(), "laptop")
	require.NoError(t, err)

	assert.Equal(t, "clicked", res.Reveal)
	assert.Equal(t, []models.Review{{ID: 1, Text: "Great laptop"}, {ID: 3, Text: "Fast shipping"}}, res.Reviews)
	assert.Equal(t, 1, h.last().ActivePage().Scrolls(dom.Bottom))
}

func TestGetProductReviews_RevealOpensTab(t *testing.T) {
	withLink := strings.Replace(productPage,
		`<button class="show-more-button">TÜM YORUMLARI GÖSTER</button>`,
		`<a href="/p/laptop-1/yorumlar" target="_blank">TÜM YORUMLARI GÖSTER</a>`, 1)
	h := &harness{build: func() *domtest.Browser {
		b := domtest.NewBrowser(nil)
		b.Route(searchURL, listingPage("laptop - Trendyol", 3), nil)
		b.Route("/p/laptop-1", withLink, nil)
		b.Route("/p/laptop-1/yorumlar", `<html><body>`+reviewMarkup+`</body></html>`, nil)
		return b
	}}
	s := newScraper(t, testConfig(), h, &clock.Recorder{})

	res, err := s.GetProductReviews(context.Background(), "laptop")
	require.NoError(t, err)

	assert.Equal(t, "/p/laptop-1/yorumlar", res.URL)
	assert.Len(t, res.Reviews, 2)
	assert.Equal(t, "tab-3", string(h.last().ActiveID()))
}

func TestGetProductReviews_Unavailable(t *testing.T) {
	bare := strings.Replace(productPage, `<button class="show-more-button">TÜM YORUMLARI GÖSTER</button>`, "", 1)
	h := productHarness(bare, nil)
	rec := &clock.Recorder{}
	s := newScraper(t, testConfig(), h, rec)

	res, err := s.GetProductReviews(context.Background(), "laptop")
	require.NoError(t, err)

	assert.Equal(t, "unavailable", res.Reveal)
	assert.Empty(t, res.Reviews)
	require.NotNil(t, res.Diagnostics)
	assert.Equal(t, 1, h.last().Closes())
}

func TestNew_RejectsInvalidTable(t *testing.T) {
	s, err := New(testConfig(), WithSessionFactory(&harness{}), WithTable(brokenTable()))
	assert.Nil(t, s)
	assert.Equal(t, models.ErrCodeInternal, scrapeCode(t, err))
}

func brokenTable() locator.Table {
	t := locator.DefaultTable()
	t.Title = locator.CSS("h1[[")
	return t
}
