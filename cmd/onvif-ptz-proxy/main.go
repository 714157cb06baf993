package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mooglejp/onvif-ptz-proxy/internal/config"
	"github.com/mooglejp/onvif-ptz-proxy/internal/forwarder"
	"github.com/mooglejp/onvif-ptz-proxy/internal/health"
	"github.com/mooglejp/onvif-ptz-proxy/internal/interceptor"
	"github.com/mooglejp/onvif-ptz-proxy/internal/logging"
	"github.com/mooglejp/onvif-ptz-proxy/internal/rewrite"
	"github.com/mooglejp/onvif-ptz-proxy/internal/router"
	"github.com/mooglejp/onvif-ptz-proxy/internal/tracker"
)

// defaultProfileToken is the fixed placeholder reported on /health; it is
// never replaced by a token seen in a client request. The proxy itself never
// needs to know this value to do its job, since every PTZ request
// carries its own ProfileToken.
const defaultProfileToken = "Profile_1"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.New("ERROR").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting onvif-ptz-proxy",
		"camera", cfg.CameraAddr(),
		"bind", cfg.BindAddr(),
		"external", cfg.ExternalAddr(),
	)

	if cfg.CameraUser == "admin" && cfg.CameraPass == "admin" {
		logger.Warn("using default camera credentials (admin/admin) — override CAMERA_USER/CAMERA_PASS in production")
	}

	addresses := rewrite.Addresses{
		CameraHost:   cfg.CameraHost,
		CameraPort:   cfg.CameraPort,
		ExternalHost: cfg.ProxyExternalHost,
		ExternalPort: cfg.ProxyPort,
	}

	fw := forwarder.New(cfg.CameraUser, cfg.CameraPass, forwarder.Catalog{
		CameraHost: cfg.CameraHost,
		CameraPort: cfg.CameraPort,
	}, addresses, logger)

	statusTracker := tracker.New()
	ic := interceptor.New(statusTracker, fw, logger)
	rt := router.New(ic, fw, logger)

	checker := health.NewChecker(fw, defaultProfileToken, logger)
	checker.Start()

	mux := http.NewServeMux()
	mux.Handle("/onvif/", rt)
	mux.Handle("/health", checker)
	mux.Handle("/", health.InfoPage(cfg.ProxyExternalHost, cfg.ProxyPort))

	server := &http.Server{
		Addr:    cfg.BindAddr(),
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		} else {
			logger.Info("HTTP server shut down gracefully")
		}

		checker.Stop()
		statusTracker.Cleanup()
		fw.Close()

		logger.Info("shutdown complete")
		os.Exit(0)
	}()

	logger.Info("listening", "addr", cfg.BindAddr())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
