// Package main implements the chronogram web service: rosters in, laid-out
// timelines out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/timeline"
	"golang.org/x/time/rate"
)

var (
	port      = flag.String("port", "8080", "Port for web server (or set PORT)")
	cacheSize = flag.Int("cache-size", 1_000, "Memoized layouts to keep")
	cacheTTL  = flag.Duration("cache-ttl", 30*time.Minute, "How long a memoized layout is kept")
	perMinute = flag.Int("rate", 60, "Requests per minute per client IP")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	version   = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("chronogram server v1.0.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if env := os.Getenv("PORT"); env != "" && *port == "8080" {
		if _, err := strconv.Atoi(env); err == nil {
			*port = env
		}
	}

	logger.Info("Server configuration",
		"port", *port,
		"verbose", *verbose,
		"cache_size", *cacheSize,
		"cache_ttl", *cacheTTL,
		"rate_per_minute", *perMinute)

	engine := timeline.NewEngine(logger, timeline.WithCacheSize(*cacheSize), timeline.WithTTL(*cacheTTL))
	s := newServer(engine, newRateLimiter(rate.Every(time.Minute/time.Duration(max(1, *perMinute))), max(1, *perMinute)), logger)

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", *port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
