package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Field names produced by product detail extraction.
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldFeatures    = "features"
	FieldRating      = "rating"
	FieldBrand       = "brand"
	FieldStock       = "stock"
)

// DetailFields lists the detail fields in display order.
var DetailFields = []string{
	FieldTitle, FieldBrand, FieldPrice, FieldRating, FieldStock, FieldDescription, FieldFeatures,
}

// FieldValue is either a single string or an ordered list of strings.
// It marshals to a JSON string or a JSON array accordingly.
type FieldValue struct {
	Text  string
	Items []string
	list  bool
}

// Text returns a single-string value.
func Text(s string) FieldValue {
	return FieldValue{Text: s}
}

// List returns a list value. The items are copied.
func List(items []string) FieldValue {
	return FieldValue{Items: append([]string{}, items...), list: true}
}

// IsList reports whether the value holds a list.
func (v FieldValue) IsList() bool { return v.list }

// Empty reports whether the value carries no content.
func (v FieldValue) Empty() bool {
	if v.list {
		return len(v.Items) == 0
	}
	return v.Text == ""
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.list {
		return json.Marshal(v.Items)
	}
	return json.Marshal(v.Text)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = List(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	*v = Text(s)
	return nil
}

// FieldMap maps field names to extracted values. Absent fields are omitted,
// never stored empty.
type FieldMap map[string]FieldValue

// Set stores v under name unless it is empty.
func (m FieldMap) Set(name string, v FieldValue) {
	if v.Empty() {
		return
	}
	m[name] = v
}

// Has reports whether name holds a value.
func (m FieldMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// TextOf returns the single-string value of name, or "" when absent.
func (m FieldMap) TextOf(name string) string {
	return m[name].Text
}

// ItemsOf returns the list value of name, or nil when absent.
func (m FieldMap) ItemsOf(name string) []string {
	v, ok := m[name]
	if !ok || !v.list {
		return nil
	}
	return append([]string(nil), v.Items...)
}

// Names returns the present field names, sorted.
func (m FieldMap) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Missing returns the entries of required that m does not hold, in order.
func (m FieldMap) Missing(required []string) []string {
	var out []string
	for _, name := range required {
		if !m.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		if v.list {
			v.Items = append([]string{}, v.Items...)
		}
		out[k] = v
	}
	return out
}
