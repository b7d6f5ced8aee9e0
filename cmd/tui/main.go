package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/bridge/httpbridge"
	"github.com/cardexlabs/cardex/internal/bridge/wsbridge"
	"github.com/cardexlabs/cardex/internal/config"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/license"
	"github.com/cardexlabs/cardex/internal/logger"
	"github.com/cardexlabs/cardex/internal/metrics"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/router"
	"github.com/cardexlabs/cardex/internal/ui/screen"
	"github.com/cardexlabs/cardex/internal/ui/state"
)

const (
	logBufferSize    = 2000
	eventBufferSize  = 256
	liquidityHistory = 288 // ~2.4h of poll history at the default 30s refresh
)

// AppModel is the top-level TUI model: a router over the screens plus
// the single bus listener. Screens never call ui.ListenBus themselves;
// the app model owns the loop and forwards everything down the stack.
type AppModel struct {
	router   *router.Router
	services ui.ServiceProvider
	width    int
	height   int
}

// NewAppModel creates the application model rooted at the main menu
func NewAppModel(services ui.ServiceProvider) *AppModel {
	mainMenu := screen.NewMainMenuScreen(services)

	return &AppModel{
		router:   router.New(mainMenu),
		services: services,
	}
}

// Init initializes the application
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		ui.ListenBus(),
		tea.EnterAltScreen,
	)
}

// Update handles application-level updates
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// A bus delivery consumes the listener; re-arm it for exactly
	// that case so input bursts don't stack reader goroutines.
	if delivery, ok := msg.(ui.BusMsg); ok {
		msg = delivery.Msg
		cmds = append(cmds, ui.ListenBus())
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.router.SetSize(msg.Width, msg.Height)

		updatedRouter, cmd := m.router.Update(msg)
		m.router = updatedRouter.(*router.Router)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		updatedRouter, cmd := m.router.Update(msg)
		m.router = updatedRouter.(*router.Router)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case ui.RouterMsg:
		if cmd := m.handleNavigation(msg.To); cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		updatedRouter, cmd := m.router.Update(msg)
		m.router = updatedRouter.(*router.Router)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// handleNavigation maps a route to its screen
func (m *AppModel) handleNavigation(route ui.Route) tea.Cmd {
	var newScreen router.Screen

	switch route {
	case ui.RouteMainMenu:
		newScreen = screen.NewMainMenuScreen(m.services)

	case ui.RouteTokens:
		newScreen = screen.NewTokensScreen(m.services)

	case ui.RoutePortfolio:
		newScreen = screen.NewPortfolioScreen(m.services)

	case ui.RouteMigration:
		newScreen = screen.NewMigrationScreen(m.services)

	case ui.RouteDiagnostics:
		newScreen = screen.NewDiagnosticsScreen(m.services)

	case ui.RouteLogs:
		newScreen = screen.NewLogsScreen(m.services)

	default:
		return nil
	}

	// Main menu resets the stack; everything else layers on top of it
	if route == ui.RouteMainMenu {
		return m.router.Replace(newScreen)
	}
	return m.router.Push(newScreen)
}

// View renders the application
func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Log ring with rotating spill file; the TUI owns stdout, so zap
	// writes only to the buffer.
	spill := logger.NewRotatingSpill(cfg.Logging.File,
		cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays)
	logBuffer := logger.NewLogBuffer(logBufferSize, spill)
	defer logBuffer.Close()

	appLogger, err := logger.CreateTUILoggerWithBuffer(logger.ParseLevel(cfg.Logging.Level), logBuffer)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = appLogger.Sync()
	}()

	appLogger.Info("Starting Cardex TUI",
		zap.String("config", *configPath),
		zap.String("implementation", cfg.Bridge.Implementation))

	bus := events.NewBus(appLogger, eventBufferSize)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bus.Shutdown(shutdownCtx)
	}()

	collector := metrics.NewCollector()

	// Token discovery
	apiClient := discovery.NewClient(discovery.ClientConfig{
		BaseURL:        cfg.Discovery.BaseURL,
		RequestTimeout: cfg.Discovery.RequestTimeout,
		MaxRetries:     cfg.Discovery.MaxRetries,
	}, appLogger)

	tokens := discovery.NewService(apiClient, discovery.ServiceConfig{
		Refresh:         cfg.Discovery.Refresh,
		MinLiquidityAda: cfg.Discovery.MinLiquidityAda,
		HistorySize:     liquidityHistory,
	}, bus, collector, appLogger)

	// Balance aggregation, metadata resolved against the discovery list
	// first and the token registry as fallback
	resolver := portfolio.NewResolver(tokens, apiClient, appLogger)
	aggregator := portfolio.NewAggregator(resolver, bus, collector, appLogger)

	// Wallet bridges
	legacy := httpbridge.New(httpbridge.Config{
		BaseURL:  cfg.Bridge.Legacy.BaseURL,
		Timeout:  cfg.Bridge.Legacy.Timeout,
		MaxTries: 3,
	}, cfg.Bridge.PreferredWallet, appLogger)

	v2 := wsbridge.New(wsbridge.Config{
		URL:              cfg.Bridge.V2.URL,
		HandshakeTimeout: cfg.Bridge.V2.HandshakeTimeout,
		ReadTimeout:      cfg.Bridge.V2.ReadTimeout,
		PingInterval:     cfg.Bridge.V2.PingInterval,
	}, cfg.Bridge.PreferredWallet, appLogger)

	// Connectors are keyed by wallet name, so only the configured
	// implementation's connector goes in the registry; the shim holds
	// both ends regardless.
	registry := bridge.NewRegistry(appLogger)
	var active bridge.Connector = legacy
	if cfg.Bridge.Implementation == config.ImplementationV2 {
		active = v2
	}
	if err := registry.Register(active); err != nil {
		appLogger.Warn("Connector registration failed", zap.Error(err))
	}

	manager := migration.NewManager(legacy, v2, bus, collector, appLogger)

	runner := diag.NewRunner(bus, appLogger)
	exporter := export.NewExporter(appLogger)

	state.InitCache(appLogger)
	cache := state.GlobalCache

	// Switch progress is delivered synchronously so the gauge never
	// jumps backwards
	manager.SetOnProgress(func(st migration.State) {
		cache.SetMigration(st)
		ui.Publish(ui.MigrationMsg{State: st})
	})

	eventBridge := ui.BridgeEvents(bus, tokens, cache, appLogger)
	defer eventBridge.Close()

	// Optional license gate: advisory, never blocks the terminal
	if cfg.License.Key != "" {
		validator := license.NewValidator(cfg.License.Account, cfg.License.Product, cfg.License.Key, appLogger)
		if err := validator.Validate(rootCtx); err != nil {
			appLogger.Warn("License validation failed", zap.Error(err))
		} else {
			go func() {
				ticker := time.NewTicker(10 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-rootCtx.Done():
						return
					case <-ticker.C:
						if err := validator.Heartbeat(rootCtx); err != nil {
							appLogger.Warn("License heartbeat failed", zap.Error(err))
						}
					}
				}
			}()
		}
	}

	tokens.Start()
	defer tokens.Stop()

	// Configured onto v2 but the shim starts on legacy: run the staged
	// switch in the background so the UI shows its progress
	if cfg.Bridge.Implementation == config.ImplementationV2 {
		go func() {
			if err := manager.Switch(rootCtx); err != nil {
				appLogger.Warn("Initial switch to v2 failed, staying on legacy", zap.Error(err))
			}
		}()
	}

	services := ui.NewAppServices(rootCtx, cfg, appLogger, logBuffer,
		tokens, aggregator, manager, registry, runner, exporter, cache)

	recovery := ui.NewRecoveryHandler(appLogger, func() (tea.Model, []tea.ProgramOption) {
		return NewAppModel(services), []tea.ProgramOption{
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
		}
	})

	uiDone := make(chan error, 1)
	go func() {
		uiDone <- recovery.RunWithRecovery()
	}()

	select {
	case <-rootCtx.Done():
		appLogger.Info("Shutting down")
		recovery.Stop()
		<-uiDone
	case err := <-uiDone:
		if err != nil {
			appLogger.Error("TUI exited with error", zap.Error(err))
		}
	}

	manager.Disconnect()
	appLogger.Info("Goodbye")
}
