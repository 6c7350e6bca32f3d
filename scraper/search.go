package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/shopwalk/extract"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
	"github.com/use-agent/shopwalk/pagination"
)

// SearchListing returns up to targetCount result items for query, scrolling
// the infinite listing at most maxScrollAttempts times. Zero values take the
// defaults. An empty result carries diagnostics of the page.
func (s *Scraper) SearchListing(ctx context.Context, query string, targetCount, maxScrollAttempts int) (*models.SearchResult, error) {
	req := models.SearchRequest{Query: query, TargetCount: targetCount, MaxScrollAttempts: maxScrollAttempts}
	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &models.SearchResult{Query: req.Query, Items: []models.ListingItem{}}
	err := s.run(ctx, models.OpSearch, func(ctx context.Context, sess Session, logger *slog.Logger) error {
		page, err := s.openSearch(ctx, sess, req.Query, logger)
		if err != nil {
			return err
		}

		m, ok := locator.ResolveFirst(page, s.table.Containers)
		if !ok {
			result.Diagnostics = extract.Diagnose(page, s.table.Diagnostics, "no product containers matched")
			return nil
		}
		logger.Debug("containers matched", "locator", m.Locator.String(), "index", m.Index, "count", len(m.Elements))

		res, err := pagination.Expand(ctx, page, m.Locator, req.TargetCount, req.MaxScrollAttempts, pagination.Options{
			Settle:        s.cfg.Timing.ScrollSettle,
			NoGrowthLimit: s.cfg.Timing.NoGrowthLimit,
			Sleep:         s.sleep,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		s.metrics.RecordPagination(string(res.StopReason), res.Attempts)

		result.Pagination = models.PaginationInfo{
			Attempts:   res.Attempts,
			StopReason: string(res.StopReason),
			Rendered:   len(res.Items),
		}
		result.Items = extract.Listing(res.Take(req.TargetCount), s.table)
		if len(result.Items) == 0 {
			result.Diagnostics = extract.Diagnose(page, s.table.Diagnostics, "containers matched but no item had a name")
		}
		logger.Info("listing extracted", "items", len(result.Items), "stop", res.StopReason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
