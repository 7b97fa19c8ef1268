// Command exchanged runs the market simulation daemon: it seeds the store on
// first run, serves the Prometheus endpoint, claims the controller lease, and
// drives the live tick loop until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/app"
	"github.com/governmentofsc/ATLExchange-sub000/internal/config"
	"github.com/governmentofsc/ATLExchange-sub000/internal/logging"
	"github.com/governmentofsc/ATLExchange-sub000/internal/metrics"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "exchanged:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.File = cfg.Log.File
	log := logging.New(logCfg)
	defer log.Sync() //nolint:errcheck

	st, err := store.Open(cfg.Store, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	ctx := context.Background()
	if err := app.Bootstrap(ctx, st, log, time.Now()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	appCfg := app.DefaultConfig()
	appCfg.Tick.Interval = cfg.Market.TickInterval
	appCfg.Coordinator.Heartbeat = cfg.Market.Heartbeat
	appCfg.Coordinator.LeaseTTL = cfg.Market.LeaseTTL

	a, err := app.New(appCfg, st, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("exchanged up",
		zap.String("store", cfg.Store.Backend),
		zap.String("session", a.Coordinator.SessionID()),
		zap.Duration("tickInterval", cfg.Market.TickInterval))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))
	return nil
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Info("metrics endpoint up", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics endpoint failed", zap.Error(err))
	}
}
