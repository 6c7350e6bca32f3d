package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocatorMatchesText(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		text string
		want bool
	}{
		{"all parts present", ByText("TÜM", "YORUM"), "TÜM YORUMLARI GÖSTER", true},
		{"order independent", ByText("YORUM", "TÜM"), "TÜM YORUMLARI GÖSTER", true},
		{"case sensitive", ByText("TÜM", "YORUM"), "Tüm yorumları göster", false},
		{"one part missing", ByText("TÜM", "YORUM"), "TÜM ÜRÜNLER", false},
		{"no requirement", ByText(), "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.MatchesText(tt.text))
		})
	}
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, ".p-card-wrppr", ByCSS(".p-card-wrppr").String())
	assert.Equal(t, "text(TÜM & YORUM)", ByText("TÜM", "YORUM").String())
	assert.Equal(t, "css", CSS.String())
	assert.Equal(t, "text", Text.String())
}
