// Package browser drives a Chromium session through go-rod and exposes it
// through the dom interfaces.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/dom"
	"github.com/use-agent/shopwalk/models"
)

// maskWebdriver hides navigator.webdriver. It runs as a plain script before
// any page script on every new document.
const maskWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Options configure Open.
type Options struct {
	Browser           config.BrowserConfig
	NavigationTimeout time.Duration
	Logger            *slog.Logger
}

// Session is one browser process with its tabs. It is owned by a single
// operation and must be closed on every exit path; Close is idempotent.
type Session struct {
	ctx      context.Context
	opts     Options
	logger   *slog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser

	// connected is set once Connect succeeded; rod cannot close a browser
	// it never connected to.
	connected bool

	// prepareTab sets up tabs the page opened. Defaults to prepare.
	prepareTab func(*rod.Page)

	mu      sync.Mutex
	pages   map[dom.ContextID]*rod.Page
	known   map[dom.ContextID]bool
	active  dom.ContextID
	routers []*rod.HijackRouter

	closeOnce sync.Once
	closeErr  error
}

// Open launches Chromium with the anti-detection flag set, connects to it and
// prepares the first tab. Every CDP call made through the session's pages is
// bound to ctx, so the operation deadline aborts in-flight calls.
func Open(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "browser")
	cfg := opts.Browser

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	if cfg.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), cfg.UserAgent)
	}
	if cfg.AcceptLanguage != "" {
		l.Set(flags.Flag("accept-lang"), cfg.AcceptLanguage)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to launch browser", err)
	}
	logger.Debug("browser launched", "controlURL", controlURL)

	s := &Session{
		ctx:      ctx,
		opts:     opts,
		logger:   logger,
		launcher: l,
		pages:    make(map[dom.ContextID]*rod.Page),
		known:    make(map[dom.ContextID]bool),
	}
	s.prepareTab = s.prepare

	// The browser itself stays unbound so Close still works after ctx ends.
	s.browser = rod.New().ControlURL(controlURL).NoDefaultDevice()
	if err := s.connect(); err != nil {
		s.Close()
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to connect to browser", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to create page", err)
	}
	s.prepare(page)

	id := dom.ContextID(page.TargetID)
	s.pages[id] = page
	s.active = id
	return s, nil
}

func (s *Session) connect() error {
	if err := s.browser.Connect(); err != nil {
		return err
	}
	s.connected = true
	return nil
}

// prepare installs the evasions, headers and resource blocking on a tab.
// These only affect documents loaded afterwards.
func (s *Session) prepare(page *rod.Page) {
	cfg := s.opts.Browser

	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			s.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if _, err := page.EvalOnNewDocument(maskWebdriver); err != nil {
		s.logger.Warn("webdriver masking failed", "error", err)
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		}); err != nil {
			s.logger.Warn("user agent override failed", "error", err)
		}
	}
	if cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": cfg.AcceptLanguage}),
		}.Call(page)
	}

	if router := setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds); router != nil {
		s.mu.Lock()
		s.routers = append(s.routers, router)
		s.mu.Unlock()
	}
}

// Navigate loads url in the active tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.activeRod()
	if page == nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "no active tab", nil)
	}

	if s.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.NavigationTimeout)
		defer cancel()
	}
	p := page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return models.CategorizeError(err, "navigation to "+url+" failed")
	}
	if err := p.WaitLoad(); err != nil {
		return models.CategorizeError(err, "waiting for "+url+" to load failed")
	}
	s.logger.Debug("navigated", "url", url)
	return nil
}

// Contexts implements dom.Tabs. Tabs seen for the first time were opened by
// the page; they are prepared before anyone can switch to them, which covers
// the documents and requests they load from then on.
func (s *Session) Contexts() ([]dom.ContextID, error) {
	pages, err := s.browser.Context(s.ctx).Pages()
	if err != nil {
		return nil, err
	}
	return s.adopt(pages), nil
}

// adopt tracks pages and prepares the ones not seen before.
func (s *Session) adopt(pages rod.Pages) []dom.ContextID {
	var fresh []*rod.Page
	ids := make([]dom.ContextID, 0, len(pages))

	s.mu.Lock()
	for _, p := range pages {
		id := dom.ContextID(p.TargetID)
		if _, ok := s.pages[id]; !ok {
			s.pages[id] = p
			fresh = append(fresh, p)
		}
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, p := range fresh {
		s.prepareTab(p)
		s.logger.Debug("prepared new tab", "target", string(p.TargetID))
	}
	return ids
}

// Known implements dom.Tabs.
func (s *Session) Known(id dom.ContextID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known[id]
}

// Remember implements dom.Tabs.
func (s *Session) Remember(ids ...dom.ContextID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.known[id] = true
	}
}

// Switch implements dom.Tabs.
func (s *Session) Switch(id dom.ContextID) error {
	s.mu.Lock()
	page, ok := s.pages[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("browser: unknown context %s", id)
	}
	if _, err := page.Context(s.ctx).Activate(); err != nil {
		return fmt.Errorf("browser: activate %s: %w", id, err)
	}

	s.mu.Lock()
	s.active = id
	s.mu.Unlock()
	return nil
}

// ActiveID implements dom.Tabs.
func (s *Session) ActiveID() dom.ContextID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active implements dom.Tabs.
func (s *Session) Active() dom.Page {
	page := s.activeRod()
	if page == nil {
		return nil
	}
	return &Page{page: page.Context(s.ctx)}
}

func (s *Session) activeRod() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[s.active]
}

// Close stops the interceptors, closes the browser and removes the
// launcher's process and profile directory. Only the first call does work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		routers := s.routers
		s.routers = nil
		s.mu.Unlock()

		for _, r := range routers {
			if err := r.Stop(); err != nil {
				s.logger.Debug("cleanup: failed to stop hijack router", "error", err)
			}
		}
		if s.browser != nil && s.connected {
			if err := s.browser.Close(); err != nil {
				s.logger.Warn("cleanup: failed to close browser", "error", err)
				s.closeErr = models.NewScrapeError(models.ErrCodeSession, "failed to close browser", err)
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.logger.Debug("browser session closed")
	})
	return s.closeErr
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
