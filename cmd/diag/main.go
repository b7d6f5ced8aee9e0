package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge/httpbridge"
	"github.com/cardexlabs/cardex/internal/bridge/wsbridge"
	"github.com/cardexlabs/cardex/internal/config"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/logger"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

// Headless diagnostics: one discovery fetch, one optional bridge
// probe, then the full assertion battery to stdout. Exits 1 when any
// check fails so the battery can sit in a cron or CI job.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	exportPath := flag.String("export", "", "Directory to write the report to (JSON); empty disables")
	skipWallet := flag.Bool("skip-wallet", false, "Skip the wallet bridge probe")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	appLogger.Info("Running diagnostics battery",
		zap.String("discovery", cfg.Discovery.BaseURL),
		zap.Uint64("min_liquidity_ada", cfg.Discovery.MinLiquidityAda))

	apiClient := discovery.NewClient(discovery.ClientConfig{
		BaseURL:        cfg.Discovery.BaseURL,
		RequestTimeout: cfg.Discovery.RequestTimeout,
		MaxRetries:     cfg.Discovery.MaxRetries,
	}, appLogger)

	tokens := discovery.NewService(apiClient, discovery.ServiceConfig{
		Refresh:         cfg.Discovery.Refresh,
		MinLiquidityAda: cfg.Discovery.MinLiquidityAda,
	}, nil, nil, appLogger)

	snap := tokens.RefreshNow(ctx)
	if snap.Err != "" {
		appLogger.Warn("Discovery fetch failed, battery runs on an empty snapshot",
			zap.String("error", snap.Err))
	}

	probe := diag.Probe{
		Snapshot:     snap,
		ThresholdAda: cfg.Discovery.MinLiquidityAda,
	}

	if !*skipWallet {
		probe.Balance, probe.Migration = probeWallet(ctx, cfg, tokens, apiClient, appLogger)
	}

	runner := diag.NewRunner(nil, appLogger)
	report := runner.Run(ctx, probe)

	printReport(report)

	if *exportPath != "" {
		exporter := export.NewExporter(appLogger)
		path, err := exporter.WriteReport(report, export.Options{
			Format:          export.FormatJSON,
			OutputDir:       *exportPath,
			IncludeWarnings: true,
		})
		if err != nil {
			appLogger.Error("Report export failed", zap.Error(err))
		} else {
			appLogger.Info("Report written", zap.String("path", path))
		}
	}

	if report.Fails > 0 {
		os.Exit(1)
	}
}

// probeWallet opens a session on the configured implementation and
// fetches a balance for the battery. Any failure degrades to nil
// inputs, which the battery reports as warnings.
func probeWallet(ctx context.Context, cfg *config.Config, tokens *discovery.Service,
	apiClient *discovery.Client, appLogger *zap.Logger) (*portfolio.WalletBalance, *migration.State) {

	legacy := httpbridge.New(httpbridge.Config{
		BaseURL:  cfg.Bridge.Legacy.BaseURL,
		Timeout:  cfg.Bridge.Legacy.Timeout,
		MaxTries: 1,
	}, cfg.Bridge.PreferredWallet, appLogger)

	v2 := wsbridge.New(wsbridge.Config{
		URL:              cfg.Bridge.V2.URL,
		HandshakeTimeout: cfg.Bridge.V2.HandshakeTimeout,
		ReadTimeout:      cfg.Bridge.V2.ReadTimeout,
		PingInterval:     cfg.Bridge.V2.PingInterval,
	}, cfg.Bridge.PreferredWallet, appLogger)

	manager := migration.NewManager(legacy, v2, nil, nil, appLogger)
	if cfg.Bridge.Implementation == config.ImplementationV2 {
		if err := manager.Switch(ctx); err != nil {
			appLogger.Warn("Switch to v2 failed, probing legacy", zap.Error(err))
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	session, err := manager.Connect(probeCtx)
	if err != nil {
		appLogger.Warn("Wallet probe skipped, bridge unreachable", zap.Error(err))
		state := manager.Current()
		return nil, &state
	}
	defer manager.Disconnect()

	resolver := portfolio.NewResolver(tokens, apiClient, appLogger)
	aggregator := portfolio.NewAggregator(resolver, nil, nil, appLogger)

	balance, err := aggregator.Fetch(probeCtx, session)
	if err != nil {
		appLogger.Warn("Balance fetch failed", zap.Error(err))
		balance = nil
	}

	state := manager.Current()
	return balance, &state
}

func printReport(report diag.Report) {
	fmt.Printf("\n  %-28s %-6s %s\n", "CHECK", "STATUS", "DETAIL")
	fmt.Printf("  %-28s %-6s %s\n", "-----", "------", "------")
	for _, res := range report.Results {
		marker := "✓"
		switch res.Status {
		case diag.StatusWarn:
			marker = "⚠"
		case diag.StatusFail:
			marker = "✗"
		}
		fmt.Printf("  %-28s %s %-4s %s\n", res.Name, marker, res.Status, res.Detail)
	}
	fmt.Printf("\n  %d passed, %d warnings, %d failed (%s)\n\n",
		report.Passes, report.Warns, report.Fails, report.RanAt.Format(time.RFC3339))
}
