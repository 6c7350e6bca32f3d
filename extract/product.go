package extract

import (
	"strings"
	"unicode"

	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
)

// Listing field names.
const (
	ListingName        = "name"
	ListingDescription = "description"
	ListingPrice       = "price"
)

// DetailRequired lists the detail fields an extraction waits for.
var DetailRequired = []string{
	models.FieldTitle, models.FieldPrice, models.FieldDescription, models.FieldFeatures,
	models.FieldRating, models.FieldBrand, models.FieldStock,
}

// DetailSpecs returns the product page fields of table.
func DetailSpecs(table locator.Table, featureCap int) []FieldSpec {
	return []FieldSpec{
		{Name: models.FieldTitle, Chain: table.Title},
		{Name: models.FieldPrice, Chain: table.Price},
		{Name: models.FieldDescription, Chain: table.Description, Kind: Composite},
		{
			Name:      models.FieldFeatures,
			Chain:     table.Features,
			Kind:      List,
			Cap:       featureCap,
			Normalize: featureNormalizer(table.FeatureNormalizedClass),
		},
		{Name: models.FieldRating, Chain: table.Rating},
		{Name: models.FieldBrand, Chain: table.Brand},
		{Name: models.FieldStock, Chain: table.Stock},
	}
}

// ListingSpecs returns the per-card fields of table.
func ListingSpecs(table locator.Table) []FieldSpec {
	return []FieldSpec{
		{Name: ListingName, Chain: table.ListingName},
		{Name: ListingDescription, Chain: table.ListingDescription, AttrFallback: "title"},
		{Name: ListingPrice, Chain: table.ListingPrice, Normalize: func(_ dom.Element, s string) string { return CleanPrice(s) }},
	}
}

// Listing extracts name, description and price from each card. Cards
// without a name are dropped.
func Listing(cards []dom.Element, table locator.Table) []models.ListingItem {
	specs := ListingSpecs(table)
	items := make([]models.ListingItem, 0, len(cards))
	for _, card := range cards {
		f := Extract(card, specs)
		if !f.Has(ListingName) {
			continue
		}
		items = append(items, models.ListingItem{
			Name:        f.TextOf(ListingName),
			Description: f.TextOf(ListingDescription),
			Price:       f.TextOf(ListingPrice),
		})
	}
	return items
}

// CleanPrice keeps the first line that mentions TL next to a digit, which
// drops the struck-through original price and promo badges.
func CleanPrice(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, "TL") && strings.IndexFunc(line, unicode.IsDigit) >= 0 {
			return strings.TrimSpace(line)
		}
	}
	return s
}

// NormalizeFeature turns "key:value" and "key\nvalue" into "key: value".
func NormalizeFeature(s string) string {
	switch {
	case strings.Contains(s, ":"):
		s = strings.ReplaceAll(s, ":", ": ")
	case strings.Contains(s, "\n"):
		s = strings.ReplaceAll(s, "\n", ": ")
	default:
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

func featureNormalizer(class string) func(dom.Element, string) string {
	return func(el dom.Element, s string) string {
		if class == "" {
			return s
		}
		cls, _, err := el.Attribute("class")
		if err != nil || !hasClass(cls, class) {
			return s
		}
		return NormalizeFeature(s)
	}
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}

// IsProductLink accepts anchors that point at a product page.
func IsProductLink(el dom.Element) bool {
	href, ok, err := el.Attribute("href")
	if err != nil || !ok {
		return false
	}
	return strings.Contains(href, "/p/") || strings.Contains(href, "product")
}
