// ABOUTME: Main entry point for the continuous-capture daemon
// ABOUTME: Loads config, starts channels, runs HTTP server
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harper/scope-capture/internal/application/config"
	"github.com/harper/scope-capture/internal/application/manager"
	"github.com/harper/scope-capture/internal/infrastructure/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	// Load config
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create channel manager
	mgr, err := manager.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	// Start acquisition channels
	if err := mgr.Start(); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	// Setup HTTP routes
	mux := nethttp.NewServeMux()
	mux.Handle("/channels", http.NewChannelsHandler(mgr))
	mux.HandleFunc("/healthz", http.HealthzHandler)

	// Channel-specific routes
	statsHandler := http.NewStatsHandler(mgr)
	triggerHandler := http.NewTriggerHandler(mgr)
	captureHandler := http.NewCaptureHandler(mgr)

	mux.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/stats"):
			statsHandler.ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/trigger"):
			triggerHandler.ServeHTTP(w, r)
		case strings.HasSuffix(r.URL.Path, "/capture"):
			captureHandler.ServeHTTP(w, r)
		default:
			nethttp.NotFound(w, r)
		}
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Host, cfg.Listen.Port)
	srv := &nethttp.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
	}

	// Graceful shutdown
	shutdown := make(chan error, 1)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shutdown <- srv.Shutdown(ctx)
	}()

	// Start server
	log.Printf("listening on http://%s (try /channels)", addr)
	if err := srv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}

	// Wait for shutdown
	if err := <-shutdown; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Shutdown channels
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("shutdown channels: %w", err)
	}

	log.Println("shutdown complete")
	return nil
}
