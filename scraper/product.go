package scraper

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/extract"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
	"github.com/use-agent/shopwalk/navigate"
)

func validateProduct(name string) error {
	if strings.TrimSpace(name) == "" {
		return models.InvalidInput("product_name must not be empty")
	}
	return nil
}

// GetProductDetails opens the first result for name and extracts the detail
// fields, re-reading the page until every field is present or the retry
// budget runs out. Missing fields are reported, not treated as errors.
func (s *Scraper) GetProductDetails(ctx context.Context, name string) (*models.DetailsResult, error) {
	if err := validateProduct(name); err != nil {
		return nil, err
	}

	result := &models.DetailsResult{Product: name, Fields: models.FieldMap{}}
	err := s.run(ctx, models.OpDetails, func(ctx context.Context, sess Session, logger *slog.Logger) error {
		page, diag, err := s.openProduct(ctx, sess, name, logger)
		if err != nil || diag != nil {
			result.Diagnostics = diag
			result.Missing = append([]string(nil), extract.DetailRequired...)
			return err
		}
		result.URL = pageURL(page)

		fields, report, err := extract.ExtractUntilComplete(ctx, page,
			extract.DetailSpecs(s.table, s.cfg.Scraper.FeatureCap),
			extract.DetailRequired,
			extract.Retry{
				MaxAttempts: s.cfg.Timing.ExtractAttempts,
				Delay:       s.cfg.Timing.ExtractRetryDelay,
				Sleep:       s.sleep,
				Logger:      logger,
			})
		if err != nil {
			return err
		}
		s.metrics.RecordExtraction(report.Passes, report.Missing)

		result.Fields = fields.Clone()
		result.Passes = report.Passes
		result.Missing = report.Missing
		if len(fields) == 0 {
			result.Diagnostics = extract.Diagnose(page, s.table.Diagnostics, "no detail field matched")
		}
		logger.Info("details extracted", "fields", len(fields), "passes", report.Passes, "missing", report.Missing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetProductImages opens the first result for name and lists its gallery.
func (s *Scraper) GetProductImages(ctx context.Context, name string) (*models.ImagesResult, error) {
	if err := validateProduct(name); err != nil {
		return nil, err
	}

	result := &models.ImagesResult{Product: name, Images: models.ProductImages{Gallery: []models.ImageInfo{}}}
	err := s.run(ctx, models.OpImages, func(ctx context.Context, sess Session, logger *slog.Logger) error {
		page, diag, err := s.openProduct(ctx, sess, name, logger)
		if err != nil || diag != nil {
			result.Diagnostics = diag
			return err
		}
		result.URL = pageURL(page)

		result.Images = extract.Images(page, s.table)
		if len(result.Images.Gallery) == 0 {
			result.Diagnostics = extract.Diagnose(page, s.table.GalleryFallback, "no product image found")
		}
		logger.Info("images extracted", "count", len(result.Images.Gallery))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetProductReviews opens the first result for name, reveals the full review
// list when the page offers a control for it and reads the reviews.
func (s *Scraper) GetProductReviews(ctx context.Context, name string) (*models.ReviewsResult, error) {
	if err := validateProduct(name); err != nil {
		return nil, err
	}

	result := &models.ReviewsResult{Product: name, Reveal: extract.Unavailable.String(), Reviews: []models.Review{}}
	err := s.run(ctx, models.OpReviews, func(ctx context.Context, sess Session, logger *slog.Logger) error {
		page, diag, err := s.openProduct(ctx, sess, name, logger)
		if err != nil || diag != nil {
			result.Diagnostics = diag
			return err
		}

		// ── 1. Bring the review section into the document ───────────
		if err := page.Scroll(dom.Bottom); err != nil {
			logger.Debug("scroll to bottom failed", "error", err)
		}
		if err := s.sleep(ctx, s.cfg.Timing.ScrollSettle); err != nil {
			return err
		}

		// ── 2. Reveal the full list ─────────────────────────────────
		revealText := s.cfg.Site.RevealText
		if len(revealText) == 0 {
			revealText = s.table.RevealText
		}
		outcome, err := extract.RevealReviews(ctx, page, extract.RevealOptions{
			Text:      revealText,
			Fallback:  s.table.RevealFallback,
			Container: s.table.ReviewContainer,
			Attempts:  s.cfg.Timing.RevealAttempts,
			Delay:     s.cfg.Timing.ReviewPollDelay,
			Sleep:     s.sleep,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		result.Reveal = outcome.String()

		if outcome == extract.Clicked {
			if err := s.sleep(ctx, s.cfg.Timing.ClickSettle); err != nil {
				return err
			}
			// The control may open the review page in a new tab.
			if moved, err := navigate.ClickThrough(sess); err != nil {
				logger.Debug("context switch after reveal failed", "error", err)
			} else if moved == navigate.ContextChanged {
				page = sess.Active()
			}
		}
		result.URL = pageURL(page)

		// ── 3. Wait for containers, then read them ──────────────────
		if _, err := extract.WaitForAny(ctx, page, s.table.ReviewContainer,
			s.cfg.Timing.ReviewPollAttempts, s.cfg.Timing.ReviewPollDelay, s.sleep); err != nil {
			return err
		}
		result.Reviews = extract.Reviews(page, s.table.ReviewContainer, s.table.ReviewParagraph, s.cfg.Scraper.ReviewCap)
		if len(result.Reviews) == 0 {
			result.Diagnostics = extract.Diagnose(page, locator.Chain{s.table.ReviewContainer}, "no reviews found")
		}
		logger.Info("reviews extracted", "count", len(result.Reviews), "reveal", result.Reveal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
