// Package scraper runs the four storefront operations. Each call owns one
// browser session from open to teardown.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/use-agent/shopwalk/browser"
	"github.com/use-agent/shopwalk/clock"
	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/locator"
	"github.com/use-agent/shopwalk/metrics"
	"github.com/use-agent/shopwalk/models"
)

// Session is a live browsing session: its tabs plus navigation and teardown.
type Session interface {
	dom.Tabs
	Navigate(ctx context.Context, url string) error
	Close() error
}

// SessionFactory opens one session per operation.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Session, error)

// Open implements SessionFactory.
func (f SessionFactoryFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// BrowserSessions opens go-rod sessions configured from cfg.
func BrowserSessions(cfg *config.Config, logger *slog.Logger) SessionFactory {
	return SessionFactoryFunc(func(ctx context.Context) (Session, error) {
		sess, err := browser.Open(ctx, browser.Options{
			Browser:           cfg.Browser,
			NavigationTimeout: cfg.Scraper.NavigationTimeout,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		return sess, nil
	})
}

// Scraper runs operations against the storefront. It is safe for concurrent
// use; at most Scraper.MaxSessions sessions are live at once.
type Scraper struct {
	cfg      *config.Config
	table    locator.Table
	sessions SessionFactory
	sem      *semaphore.Weighted
	active   atomic.Int32
	metrics  *metrics.Metrics
	logger   *slog.Logger
	sleep    clock.SleepFunc
	started  time.Time
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithSessionFactory replaces the go-rod session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(s *Scraper) { s.sessions = f }
}

// WithTable replaces the default locator table.
func WithTable(t locator.Table) Option {
	return func(s *Scraper) { s.table = t }
}

// WithMetrics records operation metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithSleep replaces the wait used by every settle and polling delay.
func WithSleep(fn clock.SleepFunc) Option {
	return func(s *Scraper) { s.sleep = fn }
}

// New creates a Scraper. The locator table is validated up front so a bad
// selector fails at startup rather than on the first request.
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	s := &Scraper{
		cfg:     cfg,
		table:   locator.DefaultTable(),
		logger:  slog.Default(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = BrowserSessions(cfg, s.logger)
	}
	s.sleep = clock.Or(s.sleep)
	s.logger = s.logger.With("component", "scraper")

	if err := s.table.Validate(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "invalid locator table "+s.table.Version, err)
	}

	maxSessions := cfg.Scraper.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	s.sem = semaphore.NewWeighted(int64(maxSessions))
	return s, nil
}

// Stats returns a snapshot of session usage.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    s.cfg.Scraper.MaxSessions,
		ActiveSessions: int(s.active.Load()),
	}
}

// Uptime is the time since New.
func (s *Scraper) Uptime() time.Duration { return time.Since(s.started) }

// TableVersion identifies the locator table in use.
func (s *Scraper) TableVersion() string { return s.table.Version }

// run wraps one operation: deadline, session slot, session lifecycle,
// error categorisation and metrics. fn runs with a live session; the session
// is closed on every exit path.
func (s *Scraper) run(ctx context.Context, op string, fn func(ctx context.Context, sess Session, logger *slog.Logger) error) (err error) {
	start := time.Now()
	logger := s.logger.With("op", op, "op_id", uuid.NewString())

	if s.cfg.Scraper.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Scraper.OperationTimeout)
		defer cancel()
	}

	defer func() {
		status := "success"
		if err != nil {
			err = models.CategorizeError(err, op+" failed")
			var se *models.ScrapeError
			if errors.As(err, &se) {
				status = se.Code
			}
			logger.Warn("operation failed", "error", err, "elapsed", time.Since(start))
		} else {
			logger.Info("operation complete", "elapsed", time.Since(start))
		}
		s.metrics.RecordOperation(op, status, time.Since(start))
	}()

	// ── 1. Wait for a session slot ───────────────────────────────────
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return models.NewScrapeError(models.ErrCodeTimeout, "no browser session became available", err)
	}
	defer s.sem.Release(1)

	// ── 2. Open the session ──────────────────────────────────────────
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		s.metrics.RecordSessionError("open")
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return se
		}
		return models.NewScrapeError(models.ErrCodeSession, "failed to open browser session", err)
	}
	s.active.Add(1)
	s.metrics.SessionOpened()

	// ── 3. Teardown, whatever happens below ──────────────────────────
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.metrics.RecordSessionError("close")
			logger.Warn("session teardown failed", "error", cerr)
		}
		s.active.Add(-1)
		s.metrics.SessionClosed()
	}()

	// ── 4. Operation ─────────────────────────────────────────────────
	return fn(ctx, sess, logger)
}
