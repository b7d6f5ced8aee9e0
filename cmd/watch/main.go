package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/config"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/logger"
	"github.com/cardexlabs/cardex/internal/metrics"
	"github.com/cardexlabs/cardex/internal/shutdown"
)

// Headless discovery watcher: runs the poll loop without a terminal,
// logs additions and removals between snapshots, and serves Prometheus
// metrics. Meant for leaving on a box to track listings.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	metricsAddr := flag.String("metrics", ":9184", "Prometheus listen address; empty disables")
	exportDir := flag.String("export", "", "Directory to write the final snapshot to (CSV); empty disables")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.CreatePrettyLogger(logger.ParseLevel(cfg.Logging.Level))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Starting discovery watcher",
		zap.String("discovery", cfg.Discovery.BaseURL),
		zap.Duration("refresh", cfg.Discovery.Refresh),
		zap.Uint64("min_liquidity_ada", cfg.Discovery.MinLiquidityAda))

	closers := shutdown.New(appLogger, 15*time.Second)

	bus := events.NewBus(appLogger, 256)
	closers.Add("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bus.Shutdown(ctx)
	})

	collector := metrics.NewCollector()

	apiClient := discovery.NewClient(discovery.ClientConfig{
		BaseURL:        cfg.Discovery.BaseURL,
		RequestTimeout: cfg.Discovery.RequestTimeout,
		MaxRetries:     cfg.Discovery.MaxRetries,
	}, appLogger)

	tokens := discovery.NewService(apiClient, discovery.ServiceConfig{
		Refresh:         cfg.Discovery.Refresh,
		MinLiquidityAda: cfg.Discovery.MinLiquidityAda,
	}, bus, collector, appLogger)

	watchChanges(bus, tokens, appLogger)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		server := &http.Server{Addr: *metricsAddr, Handler: mux}

		go func() {
			appLogger.Info("Metrics listening", zap.String("addr", *metricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Metrics server failed", zap.Error(err))
			}
		}()

		closers.Add("metrics_server", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		})
	}

	tokens.Start()
	closers.Add("discovery", func() error {
		tokens.Stop()
		return nil
	})

	<-rootCtx.Done()
	appLogger.Info("Signal received, stopping watcher")

	closers.Run()

	if *exportDir != "" {
		writeFinalSnapshot(tokens, *exportDir, appLogger)
	}
}

// watchChanges logs the symbol-level diff between consecutive
// snapshots. The first snapshot logs only the count.
func watchChanges(bus *events.Bus, tokens *discovery.Service, appLogger *zap.Logger) {
	var mu sync.Mutex
	known := make(map[string]string) // unit -> symbol
	first := true

	bus.SubscribeFunc(events.TokenListUpdated, func(_ context.Context, ev events.Event) error {
		updated, ok := ev.(*events.TokenListUpdatedEvent)
		if !ok {
			return nil
		}

		snap := tokens.Snapshot()

		mu.Lock()
		defer mu.Unlock()

		current := make(map[string]string, len(snap.Tokens))
		var added []string
		for _, t := range snap.Tokens {
			current[t.Unit] = t.Symbol
			if _, seen := known[t.Unit]; !seen && !first {
				added = append(added, t.Symbol)
			}
		}
		var removed []string
		for unit, symbol := range known {
			if _, still := current[unit]; !still {
				removed = append(removed, symbol)
			}
		}
		known = current

		if first {
			first = false
			appLogger.Info("Initial token list",
				zap.Int("count", updated.Count),
				zap.Int("low_liquidity", updated.LowLiquidity))
			return nil
		}

		if len(added) == 0 && len(removed) == 0 {
			appLogger.Debug("Token list unchanged", zap.Int("count", updated.Count))
			return nil
		}

		appLogger.Info("Token list changed",
			zap.Int("count", updated.Count),
			zap.Strings("added", added),
			zap.Strings("removed", removed))
		return nil
	})
}

func writeFinalSnapshot(tokens *discovery.Service, dir string, appLogger *zap.Logger) {
	snap := tokens.Snapshot()
	if len(snap.Tokens) == 0 {
		appLogger.Warn("No snapshot to export")
		return
	}

	exporter := export.NewExporter(appLogger)
	path, err := exporter.WriteTokens(snap, export.Options{
		Format:    export.FormatCSV,
		OutputDir: dir,
	})
	if err != nil {
		appLogger.Error("Snapshot export failed", zap.Error(err))
		return
	}
	appLogger.Info("Final snapshot written",
		zap.String("path", path),
		zap.Int("tokens", len(snap.Tokens)))
}
