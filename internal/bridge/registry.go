// internal/bridge/registry.go
package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// deprecatedConnectors maps retired connector names to their upstream
// replacement, named in the error so users know where to go.
var deprecatedConnectors = map[string]string{
	"ccvault": "eternl",
}

// Registry holds the wallet connectors known to this session, keyed by
// extension name.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	byImpl     map[Impl][]Connector
	logger     *zap.Logger
}

// NewRegistry creates an empty connector registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
		byImpl:     make(map[Impl][]Connector),
		logger:     logger.Named("bridge_registry"),
	}
}

// Register adds a connector under its wallet name. Retired names are
// rejected outright so a deprecated integration cannot come back in
// through configuration.
func (r *Registry) Register(c Connector) error {
	name := c.Name()
	if replacement, retired := deprecatedConnectors[name]; retired {
		return fmt.Errorf("connector %q retired, use %q: %w", name, replacement, ErrDeprecatedConnector)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[name]; exists {
		return fmt.Errorf("connector %s already registered", name)
	}

	r.connectors[name] = c
	impl := c.Implementation()
	r.byImpl[impl] = append(r.byImpl[impl], c)

	r.logger.Info("Wallet connector registered",
		zap.String("wallet", name),
		zap.String("implementation", string(impl)))

	return nil
}

// Get retrieves a connector by wallet name.
func (r *Registry) Get(name string) (Connector, error) {
	if replacement, retired := deprecatedConnectors[name]; retired {
		return nil, fmt.Errorf("connector %q retired, use %q: %w", name, replacement, ErrDeprecatedConnector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.connectors[name]
	if !exists {
		return nil, fmt.Errorf("connector %s not found: %w", name, ErrNoWallet)
	}
	return c, nil
}

// GetByImpl retrieves all connectors of one implementation.
func (r *Registry) GetByImpl(impl Impl) []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectors := r.byImpl[impl]
	result := make([]Connector, len(connectors))
	copy(result, connectors)
	return result
}

// List returns all registered wallet names, sorted for stable display.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available probes every connector and returns the names that answer,
// sorted. An empty result is the no-wallet-detected condition.
func (r *Registry) Available(ctx context.Context) []string {
	r.mu.RLock()
	connectors := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		connectors = append(connectors, c)
	}
	r.mu.RUnlock()

	var names []string
	for _, c := range connectors {
		if c.Available(ctx) {
			names = append(names, c.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Unregister removes a connector from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.connectors[name]
	if !exists {
		return fmt.Errorf("connector %s not found", name)
	}

	delete(r.connectors, name)

	impl := c.Implementation()
	implConnectors := r.byImpl[impl]
	for i, conn := range implConnectors {
		if conn.Name() == name {
			r.byImpl[impl] = append(implConnectors[:i], implConnectors[i+1:]...)
			break
		}
	}

	r.logger.Info("Wallet connector unregistered", zap.String("wallet", name))
	return nil
}

// DefaultRegistry is the global connector registry.
var DefaultRegistry = NewRegistry(zap.NewNop())

// Register adds a connector to the default registry.
func Register(c Connector) error {
	return DefaultRegistry.Register(c)
}

// Get retrieves a connector from the default registry.
func Get(name string) (Connector, error) {
	return DefaultRegistry.Get(name)
}
