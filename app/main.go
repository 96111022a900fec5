package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/alert-comb/app/api"
	"github.com/lysyi3m/alert-comb/app/bootstrap"
	"github.com/lysyi3m/alert-comb/app/cfg"
	"github.com/lysyi3m/alert-comb/app/feed"
	"github.com/lysyi3m/alert-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	bootstrap.SetupLogger(appCfg.Debug)

	slog.Info("Starting Alert Comb server", "version", appCfg.Version)

	app, err := bootstrap.New(appCfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(app.ConfigCache, app.Service, appCfg.WorkerCount,
		time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := appCfg.BaseUrl
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", appCfg.Port)
	}

	handler := api.NewHandler(app.Store, app.Service, app.Service,
		feed.NewGenerator(baseURL, appCfg.Version), app.ConfigCache, scheduler, appCfg.Version)
	if app.RedisGuard != nil {
		handler.AddHealthReporter("redis", app.RedisGuard)
	}

	metricsHandler := promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
	server := api.NewServer(handler, appCfg.APIAccessKey, metricsHandler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler, store and clients are closed via defer
}
