package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMapOmitsEmpty(t *testing.T) {
	m := FieldMap{}
	m.Set(FieldTitle, Text("Laptop X"))
	m.Set(FieldPrice, Text(""))
	m.Set(FieldFeatures, List(nil))
	m.Set(FieldBrand, List([]string{"a"}))

	assert.Equal(t, []string{FieldBrand, FieldTitle}, m.Names())
	assert.Equal(t, []string{FieldPrice, FieldRating}, m.Missing([]string{FieldTitle, FieldPrice, FieldRating}))
	assert.Equal(t, "Laptop X", m.TextOf(FieldTitle))
	assert.Nil(t, m.ItemsOf(FieldTitle))
}

func TestFieldMapCloneIsIndependent(t *testing.T) {
	m := FieldMap{}
	m.Set(FieldFeatures, List([]string{"RAM: 16 GB", "SSD: 512 GB"}))

	c := m.Clone()
	c[FieldFeatures].Items[0] = "changed"
	c.Set(FieldTitle, Text("x"))

	assert.Equal(t, "RAM: 16 GB", m.ItemsOf(FieldFeatures)[0])
	assert.False(t, m.Has(FieldTitle))
}

func TestFieldMapJSON(t *testing.T) {
	m := FieldMap{}
	m.Set(FieldTitle, Text("Laptop"))
	m.Set(FieldFeatures, List([]string{"a", "b"}))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Laptop","features":["a","b"]}`, string(data))

	var back FieldMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back[FieldFeatures].IsList())
	assert.Equal(t, "Laptop", back.TextOf(FieldTitle))
}

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{"defaults", SearchRequest{Query: "laptop"}, false},
		{"blank query", SearchRequest{Query: "  "}, true},
		{"target too large", SearchRequest{Query: "q", TargetCount: 101}, true},
		{"target negative", SearchRequest{Query: "q", TargetCount: -1}, true},
		{"scroll too large", SearchRequest{Query: "q", MaxScrollAttempts: 31}, true},
		{"bounds", SearchRequest{Query: "q", TargetCount: 1, MaxScrollAttempts: 30}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Defaults()
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var se *ScrapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, ErrCodeInvalidInput, se.Code)
		})
	}
}

func TestScrapeErrorWraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewScrapeError(ErrCodeNavigation, "navigation failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NAVIGATION_FAILED: navigation failed: boom", err.Error())
	assert.Equal(t, &ErrorDetail{Code: ErrCodeNavigation, Message: "navigation failed"}, err.ToDetail())
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"other", errors.New("net::ERR_NAME_NOT_RESOLVED"), ErrCodeNavigation},
		{"passthrough", NewScrapeError(ErrCodeSession, "launch", nil), ErrCodeSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeError(tt.err, "navigation failed").Code)
		})
	}
}
