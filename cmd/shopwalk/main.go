package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/logging"
	"github.com/use-agent/shopwalk/metrics"
	"github.com/use-agent/shopwalk/scraper"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var jsonOutput bool

func main() {
	root := &cobra.Command{
		Use:           "shopwalk",
		Short:         "Trendyol search, product detail, image and review extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the structured result as JSON instead of text")

	root.AddCommand(searchCmd(), detailsCmd(), imagesCmd(), reviewsCmd(), serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is what every subcommand needs: configuration, a logger and the
// scraper built from them.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	scraper *scraper.Scraper
	closer  io.Closer
}

func newApp() (*app, error) {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logger, closer := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	// ── 3. Initialise scraper ───────────────────────────────────────
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(logger)
	}
	sc, err := scraper.New(cfg,
		scraper.WithLogger(logger),
		scraper.WithMetrics(m),
	)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("initialise scraper: %w", err)
	}
	return &app{cfg: cfg, logger: logger, metrics: m, scraper: sc, closer: closer}, nil
}

func (a *app) Close() error { return a.closer.Close() }

// emit prints either the JSON form of v or the text rendering.
func emit(w io.Writer, v any, text string) error {
	if !jsonOutput {
		_, err := io.WriteString(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
