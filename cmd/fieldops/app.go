package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/agrosync/fieldops/internal/activity"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/cache"
	"github.com/agrosync/fieldops/internal/config"
	"github.com/agrosync/fieldops/internal/geocode"
	"github.com/agrosync/fieldops/internal/history"
	"github.com/agrosync/fieldops/internal/influx"
	"github.com/agrosync/fieldops/internal/logging"
	"github.com/agrosync/fieldops/internal/markers"
	"github.com/agrosync/fieldops/internal/placement"
	"github.com/agrosync/fieldops/internal/profile"
	"github.com/agrosync/fieldops/internal/sessions"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/telemetry"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
)

const appName = "fieldops"

// geocodeCachePrecision rounds cache keys to about 11 m.
const geocodeCachePrecision = 4

// app holds the wired services for one CLI invocation.
type app struct {
	Logger    *slog.Logger
	Sessions  *sessions.Manager
	Markers   *markers.Ledger
	History   *history.Aggregator
	Placement *placement.Service
	Profile   *profile.Service

	logs     *logging.SlogManager
	logFile  *os.File
	store    storage.Store
	influx   *influx.Manager
	activity *activity.Dispatcher
}

// newApp loads configDir and wires every component around provider.
func newApp(ctx context.Context, configDir string, provider auth.Provider) (*app, error) {
	a := &app{logs: logging.NewSlogManager()}
	start := time.Now()

	cfgErr := config.Load(configDir)
	if err := a.setupLogging(start); err != nil {
		return nil, err
	}
	if cfgErr != nil {
		a.Logger.Warn("Failed to load config, using defaults", "error", cfgErr)
	}

	clock := clockwork.NewRealClock()
	metrics, err := telemetry.New()
	if err != nil {
		a.Logger.Warn("Failed to create metrics, continuing without", "error", err)
		metrics = nil
	}

	storageCfg := config.GetStorageConfig()
	a.store, err = createStorageBackend(storageCfg, clock, a.Logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := a.store.Init(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	a.Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	a.Sessions = sessions.New(sessions.Dependencies{Store: a.store, Auth: provider, Clock: clock, Logger: a.Logger, Metrics: metrics})
	a.Markers = markers.New(markers.Dependencies{Store: a.store, Auth: provider, Clock: clock, Logger: a.Logger, Metrics: metrics})
	a.History = history.New(history.Dependencies{Store: a.store, Auth: provider, Clock: clock, Logger: a.Logger, Metrics: metrics})
	a.Profile = profile.New(profile.Dependencies{Store: a.store, Auth: provider, Sessions: a.Sessions, Clock: clock, Logger: a.Logger})

	deps := placement.Dependencies{
		Sessions: a.Sessions,
		Markers:  a.Markers,
		Logger:   a.Logger,
		Namer:    a.newNamer(metrics),
	}
	if sink := a.connectInflux(ctx); sink != nil {
		d, err := activity.New(a.Logger)
		if err != nil {
			a.Logger.Warn("Failed to create activity dispatcher", "error", err)
		} else {
			a.activity = d
			deps.Activity = activity.NewRecorder(d, sink, activity.DefaultBufferSize)
		}
	}
	a.Placement = placement.New(deps)

	return a, nil
}

func (a *app) setupLogging(start time.Time) error {
	logsDir := viper.GetString("logsDir")
	opts := logging.Options{
		Level: viper.GetString("logLevel"),
		Context: func(ctx context.Context) []slog.Attr {
			if u, ok := auth.UserFromContext(ctx); ok {
				return []slog.Attr{slog.String("user", u.ID)}
			}
			return nil
		},
	}

	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(logsDir, appName, start), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		opts.File = f
	}

	var gelfErr error
	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGelfWriter(viper.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			opts.Graylog = w
		}
	}

	a.logs.Setup(opts)
	a.Logger = a.logs.Logger()
	if gelfErr != nil {
		a.Logger.Warn("Failed to connect to Graylog", "address", viper.GetString("graylog.address"), "error", gelfErr)
	}
	return nil
}

func (a *app) newNamer(metrics *telemetry.Metrics) placement.LocationNamer {
	cfg := config.GetGeocodeConfig()
	var reverser geocode.Reverser
	if cfg.Enabled {
		reverser = geocode.New(cfg.BaseURL, cfg.UserAgent, cfg.Timeout)
	}
	return geocode.NewResolver(reverser, cache.NewLocationCache(geocodeCachePrecision), metrics, a.Logger)
}

func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	var extra io.Writer
	if a.logFile != nil {
		extra = a.logFile
	}
	m := influx.NewManager(logging.NewZerolog(viper.GetString("logLevel"), "influx", extra), cfg)
	if err := m.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			a.Logger.Warn("Field activity recording unavailable", "error", err)
		}
		m.Close()
		return nil
	}
	a.influx = m
	return m
}

// Close drains queued activity, flushes the sink and releases the store and log sinks.
func (a *app) Close() {
	if a.activity != nil {
		a.activity.Close()
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.Logger.Warn("Failed to close influx", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn("Failed to close storage", "error", err)
		}
	}
	if err := a.logs.Close(); err != nil {
		a.Logger.Warn("Failed to close Graylog writer", "error", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
