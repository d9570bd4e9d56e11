package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scienceol/recovery/internal/config"
	"github.com/scienceol/recovery/internal/duration"
	"github.com/scienceol/recovery/internal/events"
	"github.com/scienceol/recovery/internal/logging"
	"github.com/scienceol/recovery/internal/metrics"
	"github.com/scienceol/recovery/internal/recovery"
	"github.com/scienceol/recovery/internal/timer"
	"github.com/scienceol/recovery/internal/ui"
)

// app is what every long running command needs: configuration, a logger,
// the event bus and a controller emitting on it.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	bus  *events.Bus
	ctrl *recovery.Controller

	metrics *http.Server
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := flags.load(cmd)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	bus := events.New()
	if err := ui.Watch(bus); err != nil {
		bus.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	notifier, err := metrics.New(bus, reg)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: log,
		bus: bus,
		ctrl: recovery.New(notifier, timer.New(nil),
			recovery.WithOverrides(cfg.Recovery),
			recovery.WithLogger(log.Named("recovery"))),
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	return a, nil
}

func (a *app) showSettings() {
	s := a.cfg.Settings()
	ui.KeyValue("Min delay", s.MinDelay.String())
	ui.KeyValue("Max delay", duration.Format(s.MaxDelay))
	ui.KeyValue("Factor", fmt.Sprintf("%g", s.Factor))
	ui.KeyValue("Retries", fmt.Sprintf("%d", s.MaxRetries))
	ui.KeyValue("Timeout", s.AttemptTimeout.String())
	if a.cfg.MetricsAddr != "" {
		ui.KeyValue("Metrics", a.cfg.MetricsAddr+"/metrics")
	}
}

func (a *app) close() {
	a.ctrl.Destroy()
	a.bus.Close()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	_ = a.log.Sync()
}
