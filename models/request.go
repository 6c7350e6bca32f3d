package models

import "strings"

// Search limits.
const (
	DefaultTargetCount       = 100
	MaxTargetCount           = 100
	DefaultMaxScrollAttempts = 15
	MaxScrollAttempts        = 30
)

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the free-text search. Required.
	Query string `json:"query" binding:"required"`

	// TargetCount is the number of listing items wanted.
	// Default: 100. Range: 1-100.
	TargetCount int `json:"target_count,omitempty" binding:"omitempty,min=1,max=100"`

	// MaxScrollAttempts bounds the pagination cycles.
	// Default: 15. Range: 1-30.
	MaxScrollAttempts int `json:"max_scroll_attempts,omitempty" binding:"omitempty,min=1,max=30"`

	// MaxAge in seconds allows serving a cached response no older than this.
	// 0 (default) bypasses the cache.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.TargetCount == 0 {
		r.TargetCount = DefaultTargetCount
	}
	if r.MaxScrollAttempts == 0 {
		r.MaxScrollAttempts = DefaultMaxScrollAttempts
	}
}

// Validate checks the request after Defaults has run.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return InvalidInput("query must not be empty")
	}
	if r.TargetCount < 1 || r.TargetCount > MaxTargetCount {
		return InvalidInput("target_count must be between 1 and %d, got %d", MaxTargetCount, r.TargetCount)
	}
	if r.MaxScrollAttempts < 1 || r.MaxScrollAttempts > MaxScrollAttempts {
		return InvalidInput("max_scroll_attempts must be between 1 and %d, got %d", MaxScrollAttempts, r.MaxScrollAttempts)
	}
	return nil
}

// ProductRequest is the payload for the POST /api/v1/product/* endpoints.
type ProductRequest struct {
	// ProductName is searched and its first result is opened. Required.
	ProductName string `json:"product_name" binding:"required"`

	// MaxAge in seconds allows serving a cached response no older than this.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Validate checks the request.
func (r *ProductRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return InvalidInput("product_name must not be empty")
	}
	return nil
}
