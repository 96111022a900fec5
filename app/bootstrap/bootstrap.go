// Package bootstrap wires the store, source adapters and sync service
// shared by the server and the backfill command.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/cache"
	"github.com/lysyi3m/alert-comb/app/cfg"
	"github.com/lysyi3m/alert-comb/app/database"
	"github.com/lysyi3m/alert-comb/app/ingest"
	"github.com/lysyi3m/alert-comb/app/metrics"
	"github.com/lysyi3m/alert-comb/app/notify"
	"github.com/lysyi3m/alert-comb/app/source"
)

type App struct {
	Store       database.Store
	ConfigCache *source.ConfigCache
	Service     *ingest.Service
	Registry    *prometheus.Registry
	RedisGuard  *cache.RedisGuard // nil without --redis-addr

	publisher *notify.KafkaPublisher
}

// SetupLogger installs the default slog logger.
func SetupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func New(c *cfg.Cfg) (*App, error) {
	slog.Info("Opening database", "driver", c.DBDriver)
	store, err := database.Open(c.DBDriver, c.DBDSN)
	if err != nil {
		return nil, err
	}

	app := &App{Store: store}

	version, dirty, err := store.Migrate()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	app.ConfigCache = source.NewConfigCache(c.SourcesDir)
	if err := app.ConfigCache.Run(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "count", app.ConfigCache.GetConfigCount(), "dir", c.SourcesDir)

	adapters, err := NewAdapters(app.ConfigCache, source.NewHTTPClient(), c)
	if err != nil {
		app.Close()
		return nil, err
	}

	opts := ingest.Options{BatchSize: c.BatchSize}

	if c.RedisAddr != "" {
		guard, err := cache.NewRedisGuard(c.RedisAddr, c.LockTimeout())
		if err != nil {
			app.Close()
			return nil, err
		}
		app.RedisGuard = guard
		opts.Guard = guard
	}

	if len(c.KafkaBrokers) > 0 {
		app.publisher = notify.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
		opts.Publisher = app.publisher
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Recorder = metrics.NewCollector(app.Registry)

	filterer := source.NewFilterer()
	opts.Filter = func(src alert.Source, a alert.NormalizedAlert) (bool, string) {
		return filterer.Run(a, app.ConfigCache.Filters(src))
	}

	app.Service = ingest.NewService(store, adapters, opts)

	return app, nil
}

// NewAdapters builds one client per source from the loaded configurations.
// Each source gets its own fetcher so rate limits are per source.
func NewAdapters(configCache *source.ConfigCache, client *http.Client, c *cfg.Cfg) (ingest.Adapters, error) {
	var adapters ingest.Adapters
	parser := source.NewParser()

	for _, src := range alert.AllSources {
		sourceConfig, err := configCache.GetConfig(src.ConfigName())
		if err != nil {
			return adapters, err
		}
		fetcher := source.NewFetcher(client, c.UserAgent, sourceConfig.Settings)

		switch src {
		case alert.SourceFDA:
			adapters.FDA = source.NewFDAClient(sourceConfig, fetcher, c.OpenFDAKey)
		case alert.SourceFSIS:
			adapters.FSIS = source.NewFSISClient(sourceConfig, fetcher, parser)
		case alert.SourceCDC:
			adapters.CDC = source.NewCDCClient(sourceConfig, fetcher, parser)
		case alert.SourceEPA:
			adapters.EPA = source.NewEPAClient(sourceConfig, fetcher)
		case alert.SourceFederalRegister:
			adapters.FederalRegister = source.NewFederalRegisterClient(sourceConfig, fetcher)
		case alert.SourceRegulationsGov:
			adapters.RegulationsGov = source.NewRegulationsGovClient(sourceConfig, fetcher, c.RegulationsGovKey)
		}
	}

	return adapters, nil
}

// Close releases everything New opened. Safe on a partially built App.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Error("Kafka publisher close error", "error", err)
		}
	}
	if a.RedisGuard != nil {
		if err := a.RedisGuard.Close(); err != nil {
			slog.Error("Redis close error", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	}
}
