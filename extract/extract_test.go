package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/dom/domtest"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
)

const productPage = `<html><head><title>Laptop X</title></head><body>
<h1 class="product-title">Laptop X 16GB</h1>
<a class="product-title-brand-name-anchor" href="/brand">Acme</a>
<div class="rating-score">4.6</div>
<div class="content-description-container">
  <p>A</p><p>A</p><p>B</p><p></p>
</div>
<ul class="detail-attr">
  <li>Garanti 2 yıl</li>
  <li>Garanti 2 yıl</li>
  <li>Renkli ekran</li>
</ul>
</body></html>`

func TestExtractSinglePass(t *testing.T) {
	p := domtest.MustPage("u", productPage)

	f := Extract(p, DetailSpecs(locator.DefaultTable(), 15))

	assert.Equal(t, "Laptop X 16GB", f.TextOf(models.FieldTitle))
	assert.Equal(t, "Acme", f.TextOf(models.FieldBrand))
	assert.Equal(t, "4.6", f.TextOf(models.FieldRating))
	assert.Equal(t, "A\nB", f.TextOf(models.FieldDescription))
	assert.Equal(t, []string{"Garanti 2 yıl", "Renkli ekran"}, f.ItemsOf(models.FieldFeatures))
	assert.False(t, f.Has(models.FieldPrice))
	assert.False(t, f.Has(models.FieldStock))
}

func TestExtractUntilCompleteStopsWhenPriceAppears(t *testing.T) {
	p := domtest.MustPage("u", productPage)
	rec := &clock.Recorder{OnSleep: func(n int) {
		if n == 2 {
			p.Append("body", `<div class="prc-box-dscntd">1.299 TL</div>`)
		}
	}}

	f, report, err := ExtractUntilComplete(context.Background(), p,
		DetailSpecs(locator.DefaultTable(), 15),
		[]string{models.FieldTitle, models.FieldPrice},
		Retry{MaxAttempts: 5, Delay: time.Second, Sleep: rec.Sleep})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Passes)
	assert.True(t, report.Complete())
	assert.Equal(t, "1.299 TL", f.TextOf(models.FieldPrice))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.Delays)
}

func TestExtractUntilCompleteExhaustsBudget(t *testing.T) {
	p := domtest.MustPage("u", productPage)
	rec := &clock.Recorder{}

	f, report, err := ExtractUntilComplete(context.Background(), p,
		DetailSpecs(locator.DefaultTable(), 15), DetailRequired,
		Retry{MaxAttempts: 5, Delay: time.Second, Sleep: rec.Sleep})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Passes)
	assert.Len(t, rec.Delays, 4)
	assert.Equal(t, []string{models.FieldPrice, models.FieldStock}, report.Missing)
	assert.Equal(t, "Laptop X 16GB", f.TextOf(models.FieldTitle))
}

func TestExtractUntilCompleteCanceled(t *testing.T) {
	p := domtest.MustPage("u", productPage)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, report, err := ExtractUntilComplete(ctx, p,
		DetailSpecs(locator.DefaultTable(), 15), DetailRequired,
		Retry{MaxAttempts: 5, Delay: time.Second, Sleep: (&clock.Recorder{}).Sleep})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Passes)
	assert.True(t, f.Has(models.FieldTitle))
}

func TestExtractFieldFailureIsLocal(t *testing.T) {
	p := domtest.MustPage("u", productPage+`<div class="stock-info">Son 3 ürün</div>`)
	p.FailOn(".product-title")
	p.FailOn(".rating-score")

	f := Extract(p, DetailSpecs(locator.DefaultTable(), 15))

	assert.False(t, f.Has(models.FieldTitle))
	// the rating chain moves on to its next candidate
	assert.Equal(t, "4.6", f.TextOf(models.FieldRating))
	assert.Equal(t, "Son 3 ürün", f.TextOf(models.FieldStock))
	assert.Equal(t, "Acme", f.TextOf(models.FieldBrand))
}

func TestJoinDistinct(t *testing.T) {
	assert.Equal(t, "A\nB", JoinDistinct([]string{"A", "A", "B", ""}))
	assert.Equal(t, "", JoinDistinct(nil))
	assert.Equal(t, "x\ny", JoinDistinct([]string{" x ", "y", "x"}))
}

func TestCompositeFallsBackToContainerText(t *testing.T) {
	p := domtest.MustPage("u", `<div class="content-description-container"> Tek satır açıklama </div>`)

	f := Extract(p, DetailSpecs(locator.DefaultTable(), 15))
	assert.Equal(t, "Tek satır açıklama", f.TextOf(models.FieldDescription))
}

func TestFeaturesNormalizeAndCap(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<div class="attribute-item">RAM:16 GB</div>`)
	b.WriteString("<div class=\"attribute-item\">Renk\nSiyah</div>")
	b.WriteString(`<div class="attribute-item">Garanti</div>`)
	for i := 0; i < 20; i++ {
		b.WriteString(`<div class="attribute-item">Özellik ` + string(rune('a'+i)) + `</div>`)
	}
	p := domtest.MustPage("u", b.String())

	f := Extract(p, DetailSpecs(locator.DefaultTable(), 15))
	features := f.ItemsOf(models.FieldFeatures)

	require.Len(t, features, 15)
	assert.Equal(t, "RAM: 16 GB", features[0])
	assert.Equal(t, "Renk: Siyah", features[1])
	assert.Equal(t, "Garanti", features[2])
}

func TestNormalizeFeature(t *testing.T) {
	assert.Equal(t, "RAM: 16 GB", NormalizeFeature("RAM:16 GB"))
	assert.Equal(t, "Renk: Siyah", NormalizeFeature("Renk\nSiyah"))
	assert.Equal(t, "Garanti", NormalizeFeature("Garanti"))
}

func TestListing(t *testing.T) {
	p := domtest.MustPage("u", `<html><body>
<div class="p-card-wrppr">
  <span class="prdct-desc-cntnr-name">Laptop X</span>
  <div class="product-desc-sub-text">16 GB RAM</div>
  <div class="prc-box-dscntd">%20 indirim
32.999 TL</div>
</div>
<div class="p-card-wrppr">
  <span class="prdct-desc-cntnr-name">Laptop Y</span>
  <div class="product-desc-sub-text" title="Oyun bilgisayarı"></div>
</div>
<div class="p-card-wrppr"><div class="prc-box-dscntd">10 TL</div></div>
</body></html>`)

	cards := locator.ResolveAll(p, dom.ByCSS(".p-card-wrppr"))
	items := Listing(cards, locator.DefaultTable())

	require.Len(t, items, 2)
	assert.Equal(t, models.ListingItem{Name: "Laptop X", Description: "16 GB RAM", Price: "32.999 TL"}, items[0])
	assert.Equal(t, models.ListingItem{Name: "Laptop Y", Description: "Oyun bilgisayarı"}, items[1])
}

func TestCleanPrice(t *testing.T) {
	assert.Equal(t, "1.299 TL", CleanPrice("Sepette\n1.299 TL\n1.499 TL"))
	assert.Equal(t, "Fiyat yok", CleanPrice("Fiyat yok"))
	assert.Equal(t, "TL", CleanPrice("TL"))
}

func TestIsProductLink(t *testing.T) {
	p := domtest.MustPage("u", `<a class="a" href="/laptop-x-p-123/p/1"></a><a class="b" href="/kampanya"></a><a class="c"></a>`)
	get := func(sel string) dom.Element {
		els := locator.ResolveAll(p, dom.ByCSS(sel))
		require.Len(t, els, 1)
		return els[0]
	}

	assert.True(t, IsProductLink(get("a.a")))
	assert.False(t, IsProductLink(get("a.b")))
	assert.False(t, IsProductLink(get("a.c")))
}

func TestDiagnose(t *testing.T) {
	p := domtest.MustPage("https://shop.test/sr?q=x", `<html><head><title>Just a moment...</title></head><body>
<div class="product-empty"></div>
<div class="title-bar">Sonuç bulunamadı</div>
<span class="name">one</span><span class="name">two</span><span class="name">three</span>
<span class="name">four</span><span class="name">five</span>
</body></html>`)

	d := Diagnose(p, locator.DefaultTable().Diagnostics, "no result containers")

	assert.Equal(t, "Just a moment...", d.Title)
	assert.Equal(t, "https://shop.test/sr?q=x", d.URL)
	assert.Equal(t, []string{"Sonuç bulunamadı", "one", "two", "three", "four"}, d.Samples)
	assert.Equal(t, "no result containers", d.Reason)
}
