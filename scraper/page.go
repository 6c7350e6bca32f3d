package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/extract"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/models"
	"github.com/use-agent/shopwalk/navigate"
)

// SearchURL builds the result page URL for query.
func SearchURL(base, path, query string) string {
	return strings.TrimRight(base, "/") + path + url.QueryEscape(query)
}

// openSearch loads the result page for query and lets it settle. A title
// carrying the challenge marker earns an extra wait.
func (s *Scraper) openSearch(ctx context.Context, sess Session, query string, logger *slog.Logger) (dom.Page, error) {
	target := SearchURL(s.cfg.Site.BaseURL, s.cfg.Site.SearchPath, query)
	if err := sess.Navigate(ctx, target); err != nil {
		return nil, models.CategorizeError(err, "failed to open search page")
	}
	if err := s.sleep(ctx, s.cfg.Timing.InitialSettle); err != nil {
		return nil, err
	}

	page := sess.Active()
	if page == nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "no active page after navigation", nil)
	}
	if marker := s.cfg.Site.ChallengeMarker; marker != "" {
		title, err := page.Title()
		if err == nil && strings.Contains(strings.ToLower(title), strings.ToLower(marker)) {
			logger.Info("challenge page detected, waiting", "title", title, "wait", s.cfg.Timing.ChallengeWait)
			if err := s.sleep(ctx, s.cfg.Timing.ChallengeWait); err != nil {
				return nil, err
			}
		}
	}
	logger.Debug("search page ready", "url", target)
	return page, nil
}

// openProduct searches for name and follows the first result's product link,
// or clicks the result card itself when it carries no link. When there is no
// result it returns diagnostics of the result page instead of an error.
func (s *Scraper) openProduct(ctx context.Context, sess Session, name string, logger *slog.Logger) (dom.Page, *models.Diagnostics, error) {
	page, err := s.openSearch(ctx, sess, name, logger)
	if err != nil {
		return nil, nil, err
	}

	m, ok := locator.ResolveFirst(page, s.table.Containers)
	if !ok {
		return nil, extract.Diagnose(page, s.table.Diagnostics, "no product containers matched"), nil
	}
	link, ok := locator.ResolveWhere(m.Elements[0], s.table.ProductLink, extract.IsProductLink)
	if !ok {
		// Some cards navigate from a script handler instead of an anchor.
		logger.Debug("first result has no product link, clicking the card")
		link = m.Elements[0]
	}

	outcome, err := navigate.Follow(ctx, sess, link, navigate.Options{
		PreClickSettle: s.cfg.Timing.PreClickSettle,
		ClickSettle:    s.cfg.Timing.ClickSettle,
		Sleep:          s.sleep,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}

	product := sess.Active()
	if product == nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeNavigation, "no active page after opening product", nil)
	}
	logger.Info("product page opened", "outcome", outcome.String(), "context", string(sess.ActiveID()))
	return product, nil, nil
}

func pageURL(page dom.Page) string {
	u, _ := page.URL()
	return u
}
