package models

// Operation names, shared by the HTTP API, the tool server and metrics.
const (
	OpSearch  = "search"
	OpDetails = "details"
	OpImages  = "images"
	OpReviews = "reviews"
)

// OperationResponse is the response for every POST /api/v1 operation.
type OperationResponse struct {
	// Success indicates whether the operation completed without errors.
	Success bool `json:"success"`

	// Operation names the entry point that ran.
	Operation string `json:"operation"`

	// Data is the structured result (SearchResult, DetailsResult, ...).
	Data any `json:"data,omitempty"`

	// Text is the human-readable rendering of Data.
	Text string `json:"text,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in an operation.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	TableVersion string       `json:"table_version"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session usage.
type SessionStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
