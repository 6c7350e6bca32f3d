package main

import (
	"fmt"
	"os"

	"github.com/use-agent/shopwalk/config"
	"github.com/use-agent/shopwalk/imagefetch"
	"github.com/use-agent/shopwalk/logging"
	"github.com/use-agent/shopwalk/mcpserver"
	"github.com/use-agent/shopwalk/scraper"
)

var version = "0.1.0"

func main() {
	cfg := config.Load()

	// stdout carries the protocol; logs go to stderr or the log file.
	logger, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	sc, err := scraper.New(cfg, scraper.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise scraper: %v\n", err)
		os.Exit(1)
	}

	images := imagefetch.New(imagefetch.Options{
		UserAgent:      cfg.Browser.UserAgent,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		Timeout:        cfg.Scraper.ImageTimeout,
		Proxy:          cfg.Browser.DefaultProxy,
	})

	s := mcpserver.New(sc, mcpserver.Options{
		Version: version,
		Images:  images,
		BaseURL: cfg.Site.BaseURL,
		Logger:  logger,
	})

	logger.Info("mcp server starting", "table", sc.TableVersion(), "maxSessions", cfg.Scraper.MaxSessions)
	if err := s.ServeStdio(); err != nil {
		logger.Error("server error", "error", err)
		closer.Close()
		os.Exit(1)
	}
}
