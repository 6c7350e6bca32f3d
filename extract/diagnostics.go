package extract

import (
	"strings"

	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
)

// DiagnosticSamples is the number of element texts kept in Diagnostics.
const DiagnosticSamples = 5

// Diagnose describes page for a caller that got an empty result: its title,
// its URL and the first non-empty texts of the elements chain matches.
func Diagnose(page dom.Page, chain locator.Chain, reason string) *models.Diagnostics {
	d := &models.Diagnostics{Reason: reason}
	d.Title, _ = page.Title()
	d.URL, _ = page.URL()

	m, ok := locator.ResolveFirst(page, chain)
	if !ok {
		return d
	}
	for _, el := range m.Elements {
		if len(d.Samples) >= DiagnosticSamples {
			break
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			d.Samples = append(d.Samples, text)
		}
	}
	return d
}
