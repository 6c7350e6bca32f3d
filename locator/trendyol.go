package locator

import "github.com/use-agent/shopwalk/dom"

// TableVersion identifies the markup generation DefaultTable was written
// against. Bump it whenever a chain changes.
const TableVersion = "trendyol-2024.1"

// Table holds every chain the engine uses for one site. Tables are plain
// data: swapping markup generations means swapping tables.
type Table struct {
	Version string

	// Search result page.
	Containers         Chain
	ListingName        Chain
	ListingDescription Chain
	ListingPrice       Chain
	ProductLink        Chain
	Diagnostics        Chain

	// Product page.
	Title       Chain
	Price       Chain
	Description Chain
	Features    Chain
	Rating      Chain
	Brand       Chain
	Stock       Chain

	// FeatureNormalizedClass marks feature entries whose "key:value" text is
	// rewritten to "key: value".
	FeatureNormalizedClass string

	// Reviews.
	RevealText      []string
	RevealFallback  Chain
	ReviewContainer dom.Locator
	ReviewParagraph dom.Locator

	// Images.
	Gallery         Chain
	GalleryFallback Chain
	Image           dom.Locator
}

// DefaultTable returns the chains for the current Trendyol markup.
func DefaultTable() Table {
	return Table{
		Version: TableVersion,

		Containers: CSS(
			".p-card-wrppr",
			"[class*='product-item']",
			"[class*='product-card']",
			".product-down",
			"[data-test-id*='product']",
		),
		ListingName: CSS(
			"span.prdct-desc-cntnr-name",
			".name",
			"span[class*='name']",
			"[class*='title']",
		),
		ListingDescription: CSS(
			".product-desc-sub-text",
			"div[class*='desc']",
			"[class*='description']",
			".prdct-desc-cntnr-ttl",
			"div[title]",
		),
		ListingPrice: CSS(
			".prc-box-dscntd",
			".prc-box-sllng",
			"[class*='price']",
			".price",
			"span[class*='prc']",
		),
		ProductLink: CSS(
			"a[href*='/p/']",
			"a",
			"[href*='product']",
			".p-card-wrppr a",
		),
		Diagnostics: CSS(
			"[class*='product'], [class*='name'], [class*='title']",
		),

		Title: CSS(".product-title"),
		Price: CSS(
			".prc-box-dscntd",
			".prc-box-sllng",
			"[class*='price']",
			".price-current",
			"[data-test-id='price-current-price']",
		),
		Description: CSS(".content-description-container"),
		Features: CSS(
			".attribute-item, .detail-attr li, .product-features li, [class*='feature'] li",
		),
		Rating: CSS(
			".rating-score",
			"[class*='rating']",
			".star-rating",
			"[data-test-id='rating']",
		),
		Brand: CSS("a.product-title-brand-name-anchor"),
		Stock: CSS(
			".stock-info",
			"[class*='stock']",
			".availability",
			"[data-test-id*='stock']",
		),
		FeatureNormalizedClass: "attribute-item",

		RevealText: []string{"TÜM", "YORUM"},
		RevealFallback: CSS(
			".show-more-button-show-more-button",
			"[class*='show-more-button']",
			"[class*='review']",
			"[class*='comment']",
			"button",
			".btn",
		),
		ReviewContainer: dom.ByCSS(".comment-text"),
		ReviewParagraph: dom.ByCSS("p"),

		Gallery: CSS(".product-image-gallery-carousel"),
		GalleryFallback: CSS(
			"[class*='image-gallery']",
			"[class*='product-image']",
			".product-photos",
			"img[class*='product']",
			"main img",
		),
		Image: dom.ByCSS("img"),
	}
}

// Chains returns every chain of the table, for validation.
func (t Table) Chains() []Chain {
	return []Chain{
		t.Containers, t.ListingName, t.ListingDescription, t.ListingPrice,
		t.ProductLink, t.Diagnostics,
		t.Title, t.Price, t.Description, t.Features, t.Rating, t.Brand, t.Stock,
		t.RevealFallback, {t.ReviewContainer, t.ReviewParagraph, dom.ByText(t.RevealText...)},
		t.Gallery, t.GalleryFallback, {t.Image, dom.ByCSS("." + t.FeatureNormalizedClass)},
	}
}

// Validate checks every chain of the table.
func (t Table) Validate() error {
	return Validate(t.Chains()...)
}
