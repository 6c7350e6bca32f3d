package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopwalk/cache"
	"github.com/use-agent/shopwalk/format"
	"github.com/use-agent/shopwalk/models"
)

// Engine runs the scraping operations.
type Engine interface {
	SearchListing(ctx context.Context, query string, targetCount, maxScrollAttempts int) (*models.SearchResult, error)
	GetProductDetails(ctx context.Context, name string) (*models.DetailsResult, error)
	GetProductImages(ctx context.Context, name string) (*models.ImagesResult, error)
	GetProductReviews(ctx context.Context, name string) (*models.ReviewsResult, error)
}

// runFunc executes an operation and returns its data and text rendering.
type runFunc func(ctx context.Context) (any, string, error)

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Serve from cache when max_age allows.
//  3. Engine.SearchListing, render, store, respond.
func Search(eng Engine, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.OpSearch, models.InvalidInput("%s", err.Error()), start)
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			respondError(c, models.OpSearch, err, start)
			return
		}

		// ── 2-3. Cache, run ─────────────────────────────────────────
		serve(c, models.OpSearch, cc, cache.SearchKey(req), req.MaxAge, start, func(ctx context.Context) (any, string, error) {
			res, err := eng.SearchListing(ctx, req.Query, req.TargetCount, req.MaxScrollAttempts)
			if err != nil {
				return nil, "", err
			}
			return res, format.Listing(res), nil
		})
	}
}

// Details returns a handler for POST /api/v1/product/details.
func Details(eng Engine, cc *cache.Cache) gin.HandlerFunc {
	return product(models.OpDetails, cc, func(ctx context.Context, name string) (any, string, error) {
		res, err := eng.GetProductDetails(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return res, format.Details(res), nil
	})
}

// Images returns a handler for POST /api/v1/product/images.
func Images(eng Engine, cc *cache.Cache) gin.HandlerFunc {
	return product(models.OpImages, cc, func(ctx context.Context, name string) (any, string, error) {
		res, err := eng.GetProductImages(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return res, format.Images(res), nil
	})
}

// Reviews returns a handler for POST /api/v1/product/reviews.
func Reviews(eng Engine, cc *cache.Cache) gin.HandlerFunc {
	return product(models.OpReviews, cc, func(ctx context.Context, name string) (any, string, error) {
		res, err := eng.GetProductReviews(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return res, format.Reviews(res), nil
	})
}

func product(op string, cc *cache.Cache, run func(ctx context.Context, name string) (any, string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, op, models.InvalidInput("%s", err.Error()), start)
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, op, err, start)
			return
		}

		serve(c, op, cc, cache.Key(op, req.ProductName), req.MaxAge, start, func(ctx context.Context) (any, string, error) {
			return run(ctx, req.ProductName)
		})
	}
}

// serve answers from cache when allowed, otherwise runs the operation and
// stores its response.
func serve(c *gin.Context, op string, cc *cache.Cache, key string, maxAge int, start time.Time, run runFunc) {
	useCache := cc != nil && maxAge > 0
	if useCache {
		if cached, hit := cc.Get(key, maxAge); hit {
			cached.CacheStatus = "hit"
			cached.Timing = models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	data, text, err := run(c.Request.Context())
	if err != nil {
		respondError(c, op, err, start)
		return
	}

	resp := &models.OperationResponse{
		Success:   true,
		Operation: op,
		Data:      data,
		Text:      text,
		Timing:    models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	}
	if useCache {
		cc.Set(key, resp)
		resp.CacheStatus = "miss"
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, op string, err error, start time.Time) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.OperationResponse{
		Success:   false,
		Operation: op,
		Error:     scrapeErr.ToDetail(),
		Timing:    models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeImageFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeSession:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
