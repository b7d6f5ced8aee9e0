// internal/discovery/service.go
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/metrics"
)

const (
	refreshTimeout     = 15 * time.Second
	defaultHistorySize = 256
)

// ServiceConfig controls polling behavior.
type ServiceConfig struct {
	// Refresh is the polling interval. Zero disables automatic
	// polling; RefreshNow still works.
	Refresh time.Duration
	// MinLiquidityAda is the threshold, in whole ADA, below which a
	// pool is flagged as low liquidity.
	MinLiquidityAda uint64
	// HistorySize bounds the liquidity trend buffer.
	HistorySize int
}

// Service keeps a fresh token snapshot by polling the discovery API.
type Service struct {
	client       *Client
	interval     time.Duration
	minLiquidity uint64
	logger       *zap.Logger
	bus          *events.Bus
	collector    *metrics.Collector
	history      *LiquidityHistory

	mu       sync.RWMutex
	snapshot Snapshot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a discovery service. Both bus and collector may
// be nil when events or metrics are not wanted.
func NewService(client *Client, cfg ServiceConfig, bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}

	return &Service{
		client:       client,
		interval:     cfg.Refresh,
		minLiquidity: cfg.MinLiquidityAda,
		logger:       logger.Named("discovery"),
		bus:          bus,
		collector:    collector,
		history:      NewLiquidityHistory(historySize),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins periodic polling. With a zero interval nothing is
// scheduled.
func (s *Service) Start() {
	if s.interval <= 0 {
		s.logger.Info("automatic polling disabled")
		return
	}

	s.logger.Info("starting token discovery",
		zap.Duration("interval", s.interval),
		zap.Uint64("min_liquidity_ada", s.minLiquidity))

	s.wg.Add(1)
	go s.run()
}

func (s *Service) run() {
	defer s.wg.Done()

	s.refresh(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh(s.ctx)
		case <-s.ctx.Done():
			s.logger.Debug("token discovery stopped")
			return
		}
	}
}

// Stop halts polling and waits for an in-flight refresh to finish.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// RefreshNow fetches the token list immediately and returns the
// resulting snapshot.
func (s *Service) RefreshNow(ctx context.Context) Snapshot {
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) Snapshot {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	start := time.Now()
	tokens, err := s.client.FetchTokens(fetchCtx, s.minLiquidity)
	elapsed := time.Since(start)

	var snap Snapshot
	if err != nil {
		s.logger.Error("token refresh failed", zap.Error(err))
		snap = Snapshot{Tokens: []TokenInfo{}, FetchedAt: time.Now(), Err: err.Error()}
	} else {
		snap = Snapshot{Tokens: s.decorate(tokens), FetchedAt: time.Now()}
	}

	lowLiquidity := 0
	var totalReserve uint64
	for _, t := range snap.Tokens {
		if t.LowLiquidity {
			lowLiquidity++
		}
		totalReserve += t.AdaReserve
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordPoll(elapsed, len(snap.Tokens), lowLiquidity, err)
	}

	if err == nil {
		s.history.Record(Point{
			Time:            snap.FetchedAt,
			TotalAdaReserve: totalReserve,
			TokenCount:      len(snap.Tokens),
		})
		s.logger.Debug("token list refreshed",
			zap.Int("tokens", len(snap.Tokens)),
			zap.Int("low_liquidity", lowLiquidity),
			zap.Duration("duration", elapsed))
	}

	if s.bus != nil {
		_ = s.bus.Publish(&events.TokenListUpdatedEvent{
			BaseEvent:    events.NewBase(events.TokenListUpdated),
			Count:        len(snap.Tokens),
			LowLiquidity: lowLiquidity,
			Err:          snap.Err,
		})
	}

	return snap
}

// decorate prepends the native ADA entry and flags tokens under the
// liquidity threshold. API order is preserved.
func (s *Service) decorate(tokens []TokenInfo) []TokenInfo {
	threshold := s.minLiquidity * chain.LovelacePerAda

	out := make([]TokenInfo, 0, len(tokens)+1)
	out = append(out, TokenInfo{
		Symbol:   chain.AdaSymbol,
		Decimals: chain.AdaDecimals,
		Unit:     chain.LovelaceUnit,
		IsNative: true,
	})

	for _, t := range tokens {
		if t.IsNative {
			// the synthetic entry above covers the native coin
			continue
		}
		t.LowLiquidity = t.AdaReserve < threshold
		out = append(out, t)
	}
	return out
}

// Snapshot returns the latest refresh result. The token slice is a
// copy.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]TokenInfo, len(s.snapshot.Tokens))
	copy(tokens, s.snapshot.Tokens)
	return Snapshot{Tokens: tokens, FetchedAt: s.snapshot.FetchedAt, Err: s.snapshot.Err}
}

// Find returns the snapshot entry with the given unit.
func (s *Service) Find(unit string) (TokenInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.snapshot.Tokens {
		if t.Unit == unit {
			return t, true
		}
	}
	return TokenInfo{}, false
}

// History exposes the liquidity trend buffer.
func (s *Service) History() *LiquidityHistory {
	return s.history
}
