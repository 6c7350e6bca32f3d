// Package extract turns resolved elements into field maps, retrying until the
// required fields have rendered or the attempt budget is spent.
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
)

// Kind is the cardinality of a field.
type Kind int

const (
	// Single is the text of the first element the chain resolves.
	Single Kind = iota
	// List collects the text of every element the winning candidate matches.
	List
	// Composite joins the distinct descendant texts of a container.
	Composite
)

// FieldSpec declares how one field is extracted.
type FieldSpec struct {
	Name  string
	Chain locator.Chain
	Kind  Kind

	// Cap bounds List fields. Zero means unbounded.
	Cap int

	// Attr reads an attribute instead of the text.
	Attr string

	// AttrFallback is read when the text comes back empty.
	AttrFallback string

	// Children selects the descendants of a Composite container.
	// Defaults to every descendant.
	Children *dom.Locator

	// Normalize rewrites a value (or each List entry) before it is stored.
	Normalize func(el dom.Element, text string) string
}

// Extract runs a single pass over specs. Fields whose chain finds nothing,
// or whose element fails mid-read, are omitted; they never affect the others.
func Extract(scope dom.Scope, specs []FieldSpec) models.FieldMap {
	out := models.FieldMap{}
	for _, spec := range specs {
		switch spec.Kind {
		case List:
			if items := extractList(scope, spec); len(items) > 0 {
				out.Set(spec.Name, models.List(items))
			}
		case Composite:
			out.Set(spec.Name, models.Text(extractComposite(scope, spec)))
		default:
			out.Set(spec.Name, models.Text(extractSingle(scope, spec)))
		}
	}
	return out
}

func extractSingle(scope dom.Scope, spec FieldSpec) string {
	el, ok := locator.Resolve(scope, spec.Chain)
	if !ok {
		return ""
	}
	return read(el, spec)
}

func extractList(scope dom.Scope, spec FieldSpec) []string {
	m, ok := locator.ResolveFirst(scope, spec.Chain)
	if !ok {
		return nil
	}
	var items []string
	seen := make(map[string]struct{}, len(m.Elements))
	for _, el := range m.Elements {
		if spec.Cap > 0 && len(items) >= spec.Cap {
			break
		}
		text := read(el, spec)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		items = append(items, text)
	}
	return items
}

// extractComposite joins the distinct non-empty descendant texts of the
// container in document order, falling back to the container's own text.
func extractComposite(scope dom.Scope, spec FieldSpec) string {
	container, ok := locator.Resolve(scope, spec.Chain)
	if !ok {
		return ""
	}
	children := dom.ByCSS("*")
	if spec.Children != nil {
		children = *spec.Children
	}

	texts := make([]string, 0)
	for _, el := range locator.ResolveAll(container, children) {
		text, err := el.Text()
		if err != nil {
			continue
		}
		texts = append(texts, text)
	}
	if joined := JoinDistinct(texts); joined != "" {
		return joined
	}
	return read(container, FieldSpec{Normalize: spec.Normalize})
}

// JoinDistinct trims texts, drops empty entries and exact repeats, and joins
// the rest with newlines in their original order.
func JoinDistinct(texts []string) string {
	seen := make(map[string]struct{}, len(texts))
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

func read(el dom.Element, spec FieldSpec) string {
	var text string
	if spec.Attr != "" {
		v, _, err := el.Attribute(spec.Attr)
		if err != nil {
			return ""
		}
		text = strings.TrimSpace(v)
	} else {
		t, err := el.Text()
		if err != nil {
			return ""
		}
		text = strings.TrimSpace(t)
	}
	if text == "" && spec.AttrFallback != "" {
		if v, ok, err := el.Attribute(spec.AttrFallback); err == nil && ok {
			text = strings.TrimSpace(v)
		}
	}
	if text != "" && spec.Normalize != nil {
		text = strings.TrimSpace(spec.Normalize(el, text))
	}
	return text
}

// Retry bounds ExtractUntilComplete.
type Retry struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       clock.SleepFunc
	Logger      *slog.Logger
}

// DefaultRetry is five passes one second apart.
var DefaultRetry = Retry{MaxAttempts: 5, Delay: time.Second}

// Report describes a retried extraction.
type Report struct {
	Passes  int
	Missing []string
}

// Complete reports whether every required field was found.
func (r Report) Complete() bool { return len(r.Missing) == 0 }

// ExtractUntilComplete repeats Extract until no required field is missing or
// MaxAttempts passes have run, and returns the map of the last pass. Missing
// fields are reported, not returned as an error; the only error is the
// context ending between passes.
func ExtractUntilComplete(ctx context.Context, scope dom.Scope, specs []FieldSpec, required []string, retry Retry) (models.FieldMap, Report, error) {
	sleep := clock.Or(retry.Sleep)
	attempts := retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	logger := retry.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		fields models.FieldMap
		report Report
	)
	for report.Passes < attempts {
		report.Passes++
		fields = Extract(scope, specs)
		report.Missing = fields.Missing(required)
		if report.Complete() {
			break
		}
		logger.Debug("required fields missing",
			"component", "extract", "pass", report.Passes, "missing", report.Missing)
		if report.Passes == attempts {
			break
		}
		if err := sleep(ctx, retry.Delay); err != nil {
			return fields, report, err
		}
	}
	return fields, report, nil
}
