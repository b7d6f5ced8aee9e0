package state

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/diag"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

// Connection is the bridge link status shown in the header. Latency is
// the duration of the most recent bridge round trip.
type Connection struct {
	Wallet    string
	Impl      bridge.Impl
	Connected bool
	Latency   time.Duration
	UpdatedAt time.Time
}

// UICache provides thread-safe UI state caching. Background services
// write into it through the event bridge; screens read their initial
// state from it so a freshly pushed screen is never empty.
type UICache struct {
	mu         sync.RWMutex
	tokens     discovery.Snapshot
	balances   map[string]*portfolio.WalletBalance
	migration  migration.State
	report     *diag.Report
	connection Connection
	logger     *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

// NewUICache creates a new UI state cache
func NewUICache(logger *zap.Logger) *UICache {
	return &UICache{
		balances:  make(map[string]*portfolio.WalletBalance),
		migration: migration.State{Active: bridge.ImplLegacy},
		logger:    logger,
	}
}

// SetTokens stores the latest discovery snapshot.
func (c *UICache) SetTokens(snap discovery.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = snap
	atomic.AddUint64(&c.writes, 1)
}

// Tokens returns the latest discovery snapshot with a copied token
// slice.
func (c *UICache) Tokens() discovery.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	tokens := make([]discovery.TokenInfo, len(c.tokens.Tokens))
	copy(tokens, c.tokens.Tokens)
	return discovery.Snapshot{Tokens: tokens, FetchedAt: c.tokens.FetchedAt, Err: c.tokens.Err}
}

// SetBalance stores the aggregated balance for one wallet.
func (c *UICache) SetBalance(wallet string, balance *portfolio.WalletBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[wallet] = balance
	atomic.AddUint64(&c.writes, 1)
}

// Balance returns the cached balance for a wallet, if any.
func (c *UICache) Balance(wallet string) (*portfolio.WalletBalance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	balance, exists := c.balances[wallet]
	return balance, exists
}

// SetMigration stores the latest shim state.
func (c *UICache) SetMigration(st migration.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.migration = st
	atomic.AddUint64(&c.writes, 1)
}

// Migration returns the latest shim state.
func (c *UICache) Migration() migration.State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	return c.migration
}

// SetReport stores the latest diagnostics report.
func (c *UICache) SetReport(report diag.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = &report
	atomic.AddUint64(&c.writes, 1)
}

// Report returns the latest diagnostics report, if one has run.
func (c *UICache) Report() (diag.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	if c.report == nil {
		return diag.Report{}, false
	}
	return *c.report, true
}

// SetConnection stores the bridge link status.
func (c *UICache) SetConnection(wallet string, impl bridge.Impl, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connection.Wallet = wallet
	c.connection.Impl = impl
	c.connection.Connected = connected
	c.connection.UpdatedAt = time.Now()
	atomic.AddUint64(&c.writes, 1)
}

// SetLatency records the duration of the most recent bridge call.
func (c *UICache) SetLatency(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connection.Latency = latency
	c.connection.UpdatedAt = time.Now()
	atomic.AddUint64(&c.writes, 1)
}

// Connection returns the bridge link status.
func (c *UICache) Connection() Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	return c.connection
}

// Clear drops everything except the migration state, which always
// reflects the shim.
func (c *UICache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = discovery.Snapshot{}
	c.balances = make(map[string]*portfolio.WalletBalance)
	c.report = nil
	c.connection = Connection{}
	atomic.AddUint64(&c.writes, 1)
}

// GetStats returns cache statistics
func (c *UICache) GetStats() (balances, reads, writes uint64) {
	c.mu.RLock()
	balances = uint64(len(c.balances))
	c.mu.RUnlock()

	reads = atomic.LoadUint64(&c.reads)
	writes = atomic.LoadUint64(&c.writes)
	return balances, reads, writes
}

// CleanupStale removes wallet balances older than the given duration.
// A disabled wallet stops refreshing; its last balance eventually ages
// out instead of being shown as current.
func (c *UICache) CleanupStale(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for wallet, balance := range c.balances {
		if balance != nil && balance.FetchedAt.Before(cutoff) {
			delete(c.balances, wallet)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info("cleaned up stale balances",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.balances)))
	}

	return removed
}

// GlobalCache is the singleton UI cache instance
var GlobalCache *UICache

// InitCache initializes the global UI cache
func InitCache(logger *zap.Logger) {
	GlobalCache = NewUICache(logger)

	// Start periodic cleanup
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			GlobalCache.CleanupStale(30 * time.Minute)
		}
	}()
}
