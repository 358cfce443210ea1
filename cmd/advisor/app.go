package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/config"
	"github.com/crimson-sun/advisor/internal/engine"
	"github.com/crimson-sun/advisor/internal/history"
	"github.com/crimson-sun/advisor/internal/logging"
	"github.com/crimson-sun/advisor/internal/metrics"
	"github.com/crimson-sun/advisor/internal/output"
	"github.com/crimson-sun/advisor/internal/output/async"
	"github.com/crimson-sun/advisor/internal/output/file"
	"github.com/crimson-sun/advisor/internal/output/multi"
	"github.com/crimson-sun/advisor/internal/output/stdout"
	"github.com/crimson-sun/advisor/internal/output/table"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	models   *engine.Models
	analyzer *engine.Analyzer
	out      output.Output
	stop     func(context.Context) error
}

// loadConfig reads the configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

// newApp loads configuration, history and models and opens the output.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, stop: func(context.Context) error { return nil }}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		a.stop = serveMetrics(cfg.Metrics.Addr, reg, log)
	}

	ds, err := history.FromConfig(ctx, cfg.History)
	if err != nil {
		a.stop(ctx)
		return nil, err
	}
	if ds != nil {
		log.Info("history loaded", zap.String("source", cfg.History.Source), zap.Int("records", ds.Len()))
	} else {
		log.Warn("no history source configured; recommendations are disabled")
	}

	a.models = engine.LoadModels(*cfg, log.Named("models"))
	a.analyzer = engine.New(a.models, engine.NewNormalizer(cfg.Text, log.Named("textnorm")), engine.Options{
		History: ds,
		TopN:    cfg.Recommend.TopN,
		Metrics: m,
		Logger:  log.Named("engine"),
	})

	a.out, err = newOutput(cfg.Output, log)
	if err != nil {
		a.models.Close()
		a.stop(ctx)
		return nil, err
	}
	return a, nil
}

// Close flushes the output and releases models and the metrics server.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := errors.Join(a.out.Close(), a.models.Close(), a.stop(ctx))
	_ = a.log.Sync()
	return err
}

// newOutput builds the console output for cfg.Format and, when a file is
// configured, fans out to a rotating file written in the background.
func newOutput(cfg config.OutputConfig, log *zap.Logger) (output.Output, error) {
	var console output.Output
	switch cfg.Format {
	case "table":
		console = table.New()
	default:
		console = stdout.New(cfg.Pretty)
	}
	if cfg.File == "" {
		return console, nil
	}
	f, err := file.New(cfg.File, file.WithMaxSize(cfg.MaxSize))
	if err != nil {
		return nil, err
	}
	return multi.New(console, async.New(f, async.WithLogger(log.Named("output")))), nil
}

// serveMetrics exposes reg on addr/metrics and returns its shutdown func.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("metrics server listening", zap.String("addr", addr))
	return func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
