// Package format renders extraction results as plain text for terminals and
// tool clients.
package format

import (
	"fmt"
	"strings"

	"github.com/use-agent/shopwalk/models"
)

func rule(b *strings.Builder, width int) {
	b.WriteString(strings.Repeat("=", width))
	b.WriteByte('\n')
}

// Listing renders numbered products with their description and price.
func Listing(res *models.SearchResult) string {
	var b strings.Builder
	if len(res.Items) == 0 {
		b.WriteString("No products found")
		if res.Query != "" {
			fmt.Fprintf(&b, " for %q", res.Query)
		}
		b.WriteString(".\n")
		writeDiagnostics(&b, res.Diagnostics)
		return b.String()
	}

	for i, item := range res.Items {
		desc := item.Description
		if desc == "" {
			desc = "Description not found"
		}
		price := item.Price
		if price == "" {
			price = "Price not found"
		}
		fmt.Fprintf(&b, "%d. Product: %s | %s\n", i+1, item.Name, desc)
		fmt.Fprintf(&b, "    Price: %s\n\n", price)
	}
	fmt.Fprintf(&b, "Total: %d products (%d rendered, %d scroll attempts, stopped: %s)\n",
		len(res.Items), res.Pagination.Rendered, res.Pagination.Attempts, res.Pagination.StopReason)
	return b.String()
}

// Details renders a product detail block.
func Details(res *models.DetailsResult) string {
	var b strings.Builder
	f := res.Fields

	rule(&b, 60)
	b.WriteString("PRODUCT DETAILS\n")
	rule(&b, 60)

	for _, line := range []struct{ label, field string }{
		{"Title", models.FieldTitle},
		{"Brand", models.FieldBrand},
		{"Price", models.FieldPrice},
		{"Rating", models.FieldRating},
		{"Stock", models.FieldStock},
	} {
		if f.Has(line.field) {
			fmt.Fprintf(&b, "%s: %s\n", line.label, f.TextOf(line.field))
		}
	}
	if f.Has(models.FieldDescription) {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", f.TextOf(models.FieldDescription))
	}
	if features := f.ItemsOf(models.FieldFeatures); len(features) > 0 {
		b.WriteString("\nFeatures:\n")
		for i, feat := range features {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, feat)
		}
	}
	if len(res.Missing) > 0 {
		fmt.Fprintf(&b, "\nNot found after %d passes: %s\n", res.Passes, strings.Join(res.Missing, ", "))
	}
	rule(&b, 60)
	writeDiagnostics(&b, res.Diagnostics)
	return b.String()
}

// Images renders the gallery and the main image.
func Images(res *models.ImagesResult) string {
	var b strings.Builder
	gallery := res.Images.Gallery
	if len(gallery) == 0 {
		b.WriteString("No product images found.\n")
		writeDiagnostics(&b, res.Diagnostics)
		return b.String()
	}

	rule(&b, 80)
	b.WriteString("PRODUCT IMAGE GALLERY\n")
	rule(&b, 80)
	for i, img := range gallery {
		fmt.Fprintf(&b, "\nImage %d:\n", i+1)
		fmt.Fprintf(&b, "  Source: %s\n", img.Src)
		fmt.Fprintf(&b, "  Alt Text: %s\n", orDefault(img.Alt, "No alt text"))
		fmt.Fprintf(&b, "  Class: %s\n", orDefault(img.Class, "No class"))
	}

	if p := res.Images.Primary; p != nil {
		b.WriteByte('\n')
		rule(&b, 80)
		b.WriteString("MAIN PRODUCT IMAGE\n")
		rule(&b, 80)
		fmt.Fprintf(&b, "Main Image URL: %s\n", p.Src)
		fmt.Fprintf(&b, "Main Image Alt: %s\n", orDefault(p.Alt, "Product Image"))
	}
	fmt.Fprintf(&b, "Total Images in Gallery: %d\n", len(gallery))
	rule(&b, 80)
	return b.String()
}

// Reviews renders numbered review blocks and their total.
func Reviews(res *models.ReviewsResult) string {
	var b strings.Builder
	b.WriteByte('\n')
	rule(&b, 80)
	b.WriteString("PRODUCT REVIEWS\n")
	rule(&b, 80)

	if len(res.Reviews) == 0 {
		if res.Reveal == "unavailable" {
			b.WriteString("Could not find or access product reviews\n")
		} else {
			b.WriteString("No reviews found\n")
		}
		writeDiagnostics(&b, res.Diagnostics)
		return b.String()
	}

	for _, r := range res.Reviews {
		fmt.Fprintf(&b, "\n--- Review %d ---\n%s\n%s\n", r.ID, r.Text, strings.Repeat("-", 50))
	}
	fmt.Fprintf(&b, "\nTotal Reviews: %d\n", len(res.Reviews))
	rule(&b, 80)
	return b.String()
}

func writeDiagnostics(b *strings.Builder, d *models.Diagnostics) {
	if d == nil {
		return
	}
	fmt.Fprintf(b, "Reason: %s\n", d.Reason)
	fmt.Fprintf(b, "Page title: %s\n", d.Title)
	fmt.Fprintf(b, "Current URL: %s\n", d.URL)
	for i, s := range d.Samples {
		fmt.Fprintf(b, "Element %d: %s\n", i+1, s)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ImageFile describes a downloaded image. path is empty when the image was
// only inspected.
func ImageFile(format string, width, height, size int, path string) string {
	var b strings.Builder
	b.WriteString("\nImage Information:\n")
	fmt.Fprintf(&b, "Format: %s\n", strings.ToUpper(format))
	fmt.Fprintf(&b, "Size: (%d, %d)\n", width, height)
	fmt.Fprintf(&b, "Bytes: %d\n", size)
	if path != "" {
		fmt.Fprintf(&b, "Saved To: %s\n", path)
	}
	return b.String()
}

// ImageError reports a failed image download.
func ImageError(err error) string {
	return fmt.Sprintf("\nError downloading image: %v\n", err)
}
