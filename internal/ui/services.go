package ui

import (
	"context"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/config"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/export"
	"github.com/cardexlabs/cardex/internal/logger"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
	"github.com/cardexlabs/cardex/internal/ui/state"
)

// ServiceProvider provides access to the client services for UI screens
type ServiceProvider interface {
	GetDiscovery() *discovery.Service
	GetPortfolio() *portfolio.Aggregator
	GetMigration() *migration.Manager
	GetRegistry() *bridge.Registry
	GetDiagnostics() *diag.Runner
	GetExporter() *export.Exporter
	GetCache() *state.UICache
	GetLogBuffer() *logger.LogBuffer
	GetLogger() *zap.Logger
	GetConfig() *config.Config
	GetContext() context.Context
}

// AppServices implements ServiceProvider over the wired client.
type AppServices struct {
	discovery  *discovery.Service
	portfolio  *portfolio.Aggregator
	migration  *migration.Manager
	registry   *bridge.Registry
	diagnostic *diag.Runner
	exporter   *export.Exporter
	cache      *state.UICache
	logBuffer  *logger.LogBuffer
	logger     *zap.Logger
	config     *config.Config
	context    context.Context
}

// NewAppServices creates the provider screens are constructed with.
func NewAppServices(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	logBuffer *logger.LogBuffer,
	discoverySvc *discovery.Service,
	aggregator *portfolio.Aggregator,
	manager *migration.Manager,
	registry *bridge.Registry,
	runner *diag.Runner,
	exporter *export.Exporter,
	cache *state.UICache,
) ServiceProvider {
	return &AppServices{
		discovery:  discoverySvc,
		portfolio:  aggregator,
		migration:  manager,
		registry:   registry,
		diagnostic: runner,
		exporter:   exporter,
		cache:      cache,
		logBuffer:  logBuffer,
		logger:     log.Named("ui_service_provider"),
		config:     cfg,
		context:    ctx,
	}
}

// GetDiscovery returns the token discovery service
func (p *AppServices) GetDiscovery() *discovery.Service {
	return p.discovery
}

// GetPortfolio returns the balance aggregator
func (p *AppServices) GetPortfolio() *portfolio.Aggregator {
	return p.portfolio
}

// GetMigration returns the implementation shim
func (p *AppServices) GetMigration() *migration.Manager {
	return p.migration
}

// GetRegistry returns the wallet connector registry
func (p *AppServices) GetRegistry() *bridge.Registry {
	return p.registry
}

// GetDiagnostics returns the battery runner
func (p *AppServices) GetDiagnostics() *diag.Runner {
	return p.diagnostic
}

// GetExporter returns the report/balance exporter
func (p *AppServices) GetExporter() *export.Exporter {
	return p.exporter
}

// GetCache returns the shared UI cache
func (p *AppServices) GetCache() *state.UICache {
	return p.cache
}

// GetLogBuffer returns the in-memory session log ring
func (p *AppServices) GetLogBuffer() *logger.LogBuffer {
	return p.logBuffer
}

// GetLogger returns the logger
func (p *AppServices) GetLogger() *zap.Logger {
	return p.logger
}

// GetConfig returns the config
func (p *AppServices) GetConfig() *config.Config {
	return p.config
}

// GetContext returns the context
func (p *AppServices) GetContext() context.Context {
	return p.context
}
