package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/shopwalk/api"
	"github.com/use-agent/shopwalk/cache"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the operations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	a.logger.Info("shopwalk starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Scraper.MaxSessions,
		"table", a.scraper.TableVersion(),
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		a.logger.Warn("auth enabled without API keys; every protected request will be rejected")
	}

	// ── 4. Initialise cache ─────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()

	// ── 5. Setup router ─────────────────────────────────────────────
	stop := make(chan struct{})
	defer close(stop)
	router := api.NewRouter(api.Deps{
		Service: a.scraper,
		Config:  cfg,
		Cache:   cc,
		Metrics: a.metrics,
		Logger:  a.logger,
		Version: version,
		Stop:    stop,
	})

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	// In-flight operations hold browser sessions; give them the operation
	// timeout to finish and release them.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.OperationTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server forced shutdown", "error", err)
	} else {
		a.logger.Info("HTTP server drained gracefully")
	}
	a.logger.Info("shopwalk stopped")
	return nil
}
