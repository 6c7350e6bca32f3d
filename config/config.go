package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Site      SiteConfig
	Timing    TimingConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Chromium instance launched for each session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserAgent replaces the browser's user agent string.
	UserAgent string

	// AcceptLanguage is sent with every browser request.
	AcceptLanguage string // default: "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"

	// WindowWidth and WindowHeight size the viewport.
	WindowWidth  int // default: 1920
	WindowHeight int // default: 1080

	// Stealth injects the go-rod/stealth evasions on every document.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool // default: true
}

// SiteConfig describes the target storefront.
type SiteConfig struct {
	// BaseURL is the storefront origin.
	BaseURL string // default: "https://www.trendyol.com"

	// SearchPath is appended to BaseURL; the query is URL-encoded into it.
	SearchPath string // default: "/sr?q="

	// ChallengeMarker in the page title means a bot-challenge interstitial
	// is being shown (case-insensitive).
	ChallengeMarker string // default: "cloudflare"

	// RevealText lists the substrings the "show all reviews" control must contain.
	RevealText []string // default: ["TÜM", "YORUM"]
}

// TimingConfig names every fixed delay and attempt budget of the engine.
type TimingConfig struct {
	// InitialSettle is waited after the search page loads.
	InitialSettle time.Duration // default: 10s

	// ChallengeWait is waited in addition when a challenge page is detected.
	ChallengeWait time.Duration // default: 15s

	// ScrollSettle is waited after each scroll of a pagination cycle.
	ScrollSettle time.Duration // default: 1s

	// NoGrowthLimit stops pagination after this many cycles without new items.
	NoGrowthLimit int // default: 10

	// PreClickSettle and ClickSettle surround a click that may open a tab.
	PreClickSettle time.Duration // default: 1s
	ClickSettle    time.Duration // default: 3s

	// ExtractAttempts and ExtractRetryDelay bound detail extraction.
	ExtractAttempts   int           // default: 5
	ExtractRetryDelay time.Duration // default: 1s

	// ReviewPollAttempts and ReviewPollDelay bound the wait for review containers.
	ReviewPollAttempts int           // default: 5
	ReviewPollDelay    time.Duration // default: 1s

	// RevealAttempts bounds the search for the "show all reviews" control.
	RevealAttempts int // default: 5
}

// ScraperConfig controls operation-level behavior.
type ScraperConfig struct {
	// OperationTimeout is the hard deadline of one entry-point call.
	OperationTimeout time.Duration // default: 3m

	// NavigationTimeout is the max time for a single navigation.
	NavigationTimeout time.Duration // default: 30s

	// MaxSessions caps concurrently live browser sessions.
	MaxSessions int // default: 2

	// ReviewCap is the maximum number of reviews returned.
	ReviewCap int // default: 20

	// FeatureCap is the maximum number of product features returned.
	FeatureCap int // default: 15

	// ImageTimeout bounds a single image download.
	ImageTimeout time.Duration // default: 10s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 0.5

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// File, when set, routes logs to a rotated file instead of stderr.
	File       string
	MaxSizeMB  int // default: 50
	MaxBackups int // default: 3
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SHOPWALK_HOST", "0.0.0.0"),
			Port: envIntOr("SHOPWALK_PORT", 8080),
			Mode: envOr("SHOPWALK_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("SHOPWALK_HEADLESS", true),
			DefaultProxy:   os.Getenv("SHOPWALK_PROXY"),
			NoSandbox:      envBoolOr("SHOPWALK_NO_SANDBOX", true),
			BrowserBin:     os.Getenv("SHOPWALK_BROWSER_BIN"),
			UserAgent:      envOr("SHOPWALK_USER_AGENT", DefaultUserAgent),
			AcceptLanguage: envOr("SHOPWALK_ACCEPT_LANGUAGE", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"),
			WindowWidth:    envIntOr("SHOPWALK_WINDOW_WIDTH", 1920),
			WindowHeight:   envIntOr("SHOPWALK_WINDOW_HEIGHT", 1080),
			Stealth:        envBoolOr("SHOPWALK_STEALTH", true),
			BlockedResourceTypes: envSliceOr("SHOPWALK_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
			BlockAds: envBoolOr("SHOPWALK_BLOCK_ADS", true),
		},
		Site: SiteConfig{
			BaseURL:         strings.TrimRight(envOr("SHOPWALK_BASE_URL", "https://www.trendyol.com"), "/"),
			SearchPath:      envOr("SHOPWALK_SEARCH_PATH", "/sr?q="),
			ChallengeMarker: envOr("SHOPWALK_CHALLENGE_MARKER", "cloudflare"),
			RevealText:      envSliceOr("SHOPWALK_REVEAL_TEXT", []string{"TÜM", "YORUM"}),
		},
		Timing: TimingConfig{
			InitialSettle:      envDurationOr("SHOPWALK_INITIAL_SETTLE", 10*time.Second),
			ChallengeWait:      envDurationOr("SHOPWALK_CHALLENGE_WAIT", 15*time.Second),
			ScrollSettle:       envDurationOr("SHOPWALK_SCROLL_SETTLE", time.Second),
			NoGrowthLimit:      envIntOr("SHOPWALK_NO_GROWTH_LIMIT", 10),
			PreClickSettle:     envDurationOr("SHOPWALK_PRE_CLICK_SETTLE", time.Second),
			ClickSettle:        envDurationOr("SHOPWALK_CLICK_SETTLE", 3*time.Second),
			ExtractAttempts:    envIntOr("SHOPWALK_EXTRACT_ATTEMPTS", 5),
			ExtractRetryDelay:  envDurationOr("SHOPWALK_EXTRACT_RETRY_DELAY", time.Second),
			ReviewPollAttempts: envIntOr("SHOPWALK_REVIEW_POLL_ATTEMPTS", 5),
			ReviewPollDelay:    envDurationOr("SHOPWALK_REVIEW_POLL_DELAY", time.Second),
			RevealAttempts:     envIntOr("SHOPWALK_REVEAL_ATTEMPTS", 5),
		},
		Scraper: ScraperConfig{
			OperationTimeout:  envDurationOr("SHOPWALK_OPERATION_TIMEOUT", 3*time.Minute),
			NavigationTimeout: envDurationOr("SHOPWALK_NAV_TIMEOUT", 30*time.Second),
			MaxSessions:       envIntOr("SHOPWALK_MAX_SESSIONS", 2),
			ReviewCap:         envIntOr("SHOPWALK_REVIEW_CAP", 20),
			FeatureCap:        envIntOr("SHOPWALK_FEATURE_CAP", 15),
			ImageTimeout:      envDurationOr("SHOPWALK_IMAGE_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHOPWALK_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SHOPWALK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHOPWALK_RATE_RPS", 0.5),
			Burst:             envIntOr("SHOPWALK_RATE_BURST", 2),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SHOPWALK_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:      envOr("SHOPWALK_LOG_LEVEL", "info"),
			Format:     envOr("SHOPWALK_LOG_FORMAT", "json"),
			File:       os.Getenv("SHOPWALK_LOG_FILE"),
			MaxSizeMB:  envIntOr("SHOPWALK_LOG_MAX_SIZE_MB", 50),
			MaxBackups: envIntOr("SHOPWALK_LOG_MAX_BACKUPS", 3),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("SHOPWALK_METRICS_ENABLED", true),
			Path:    envOr("SHOPWALK_METRICS_PATH", "/metrics"),
		},
	}
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
