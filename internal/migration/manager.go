// internal/migration/manager.go
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/metrics"
)

// ErrSwitchInProgress is returned when Switch is called while a
// transition is already running.
var ErrSwitchInProgress = errors.New("implementation switch already in progress")

// Switch stage checkpoints. Progress is published after each stage
// completes.
const (
	progressClosed   = 10
	progressProbed   = 35
	progressEnabled  = 70
	progressVerified = 90
	progressDone     = 100
)

// State describes the shim's current position between the two wallet
// implementations.
type State struct {
	Active            bridge.Impl
	Transitioning     bool
	Progress          int
	LastError         string
	FallbackAvailable bool
}

// Manager toggles between the legacy and v2 wallet implementations.
// It owns the active session: Switch closes the old session and opens
// one on the target implementation before committing.
type Manager struct {
	logger    *zap.Logger
	bus       *events.Bus
	collector *metrics.Collector

	mu         sync.Mutex
	state      State
	connectors map[bridge.Impl]bridge.Connector
	session    bridge.Session
	onProgress func(State)
}

// NewManager creates a shim starting on the legacy implementation.
// Bus and collector may be nil.
func NewManager(legacy, v2 bridge.Connector, bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger.Named("migration"),
		bus:       bus,
		collector: collector,
		state:     State{Active: bridge.ImplLegacy},
		connectors: map[bridge.Impl]bridge.Connector{
			bridge.ImplLegacy: legacy,
			bridge.ImplV2:     v2,
		},
	}
}

// SetOnProgress registers a callback invoked with a state snapshot
// after every stage of a switch.
func (m *Manager) SetOnProgress(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress = fn
}

// Current returns a snapshot of the shim state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveConnector returns the connector of the active implementation.
func (m *Manager) ActiveConnector() bridge.Connector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectors[m.state.Active]
}

// Session returns the open session, or nil when disconnected.
func (m *Manager) Session() bridge.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// adoptSession instruments a freshly enabled session: bridge calls are
// measured, and push-capable sessions forward their balance updates to
// the event bus.
func (m *Manager) adoptSession(sess bridge.Session, impl bridge.Impl) bridge.Session {
	sess = bridge.WithMetrics(sess, impl, m.collector)
	if push, ok := sess.(bridge.PushSession); ok {
		push.OnBalanceUpdate(func(raw bridge.RawBalance) {
			m.forwardBalancePush(push.Wallet(), raw)
		})
	}
	return sess
}

// forwardBalancePush republishes a wallet-initiated balance update so
// consumers of the bus see it without waiting for the next poll.
func (m *Manager) forwardBalancePush(wallet string, raw bridge.RawBalance) {
	m.logger.Debug("balance push",
		zap.String("wallet", wallet),
		zap.Uint64("lovelace", raw.Lovelace),
		zap.Int("assets", len(raw.Assets)))

	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(&events.BalanceRefreshedEvent{
		BaseEvent:  events.NewBase(events.BalanceRefreshed),
		Wallet:     wallet,
		Lovelace:   raw.Lovelace,
		AssetCount: len(raw.Assets),
	})
}

// Connect enables a session on the active implementation.
func (m *Manager) Connect(ctx context.Context) (bridge.Session, error) {
	m.mu.Lock()
	if m.state.Transitioning {
		m.mu.Unlock()
		return nil, ErrSwitchInProgress
	}
	if m.session != nil {
		sess := m.session
		m.mu.Unlock()
		return sess, nil
	}
	conn := m.connectors[m.state.Active]
	m.mu.Unlock()

	sess, err := conn.Enable(ctx)
	if err != nil {
		return nil, err
	}
	sess = m.adoptSession(sess, conn.Implementation())

	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()

	m.publishOpened(sess.Wallet(), conn.Implementation())
	return sess, nil
}

// Disconnect closes the open session, if any.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	wallet := sess.Wallet()
	if err := sess.Close(); err != nil {
		m.logger.Warn("closing session", zap.Error(err))
	}
	m.publishClosed(wallet, "disconnect")
}

// Switch migrates to the other implementation in stages: close the
// current session, probe the target, enable it, verify the balance is
// readable, commit. Any stage failure reverts to the previous
// implementation with FallbackAvailable set.
func (m *Manager) Switch(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Transitioning {
		m.mu.Unlock()
		return ErrSwitchInProgress
	}
	from := m.state.Active
	to := otherImpl(from)
	target, ok := m.connectors[to]
	if !ok || target == nil {
		m.mu.Unlock()
		return fmt.Errorf("no connector registered for %s", to)
	}
	m.state.Transitioning = true
	m.state.Progress = 0
	m.state.LastError = ""
	oldSession := m.session
	m.session = nil
	m.mu.Unlock()

	m.logger.Info("switching wallet implementation",
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	if m.bus != nil {
		_ = m.bus.Publish(&events.MigrationStartedEvent{
			BaseEvent: events.NewBase(events.MigrationStarted),
			From:      from,
			To:        to,
		})
	}

	// Stage 1: close whatever is open. A failed close is not fatal;
	// the session is unusable either way.
	if oldSession != nil {
		wallet := oldSession.Wallet()
		if err := oldSession.Close(); err != nil {
			m.logger.Warn("closing session before switch", zap.Error(err))
		}
		m.publishClosed(wallet, "migration")
	}
	m.setProgress(from, to, progressClosed, "close")

	// Stage 2: the target must answer its availability probe.
	if !target.Available(ctx) {
		return m.fail(from, to, fmt.Errorf("wallet %q not available via %s", target.Name(), to))
	}
	m.setProgress(from, to, progressProbed, "probe")

	// Stage 3: enable a session on the target.
	sess, err := target.Enable(ctx)
	if err != nil {
		return m.fail(from, to, fmt.Errorf("enable on %s: %w", to, err))
	}
	sess = m.adoptSession(sess, to)
	m.setProgress(from, to, progressEnabled, "enable")

	// Stage 4: a session that cannot report a balance is no migration
	// target.
	if _, err := sess.Balance(ctx); err != nil {
		if closeErr := sess.Close(); closeErr != nil {
			m.logger.Warn("closing unverified session", zap.Error(closeErr))
		}
		return m.fail(from, to, fmt.Errorf("balance check on %s: %w", to, err))
	}
	m.setProgress(from, to, progressVerified, "verify")

	// Stage 5: commit.
	m.mu.Lock()
	m.state = State{Active: to, Progress: progressDone}
	m.session = sess
	m.mu.Unlock()
	m.setProgress(from, to, progressDone, "commit")

	if m.collector != nil {
		m.collector.RecordMigration(nil)
	}
	m.publishOpened(sess.Wallet(), to)
	if m.bus != nil {
		_ = m.bus.Publish(&events.MigrationCompletedEvent{
			BaseEvent: events.NewBase(events.MigrationCompleted),
			From:      from,
			To:        to,
		})
	}

	m.logger.Info("wallet implementation switched",
		zap.String("active", string(to)))
	return nil
}

// Reset returns the shim to its initial state: legacy active, no
// transition, no error. An open session is closed.
func (m *Manager) Reset() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.state = State{Active: bridge.ImplLegacy}
	m.mu.Unlock()

	if sess != nil {
		wallet := sess.Wallet()
		if err := sess.Close(); err != nil {
			m.logger.Warn("closing session during reset", zap.Error(err))
		}
		m.publishClosed(wallet, "reset")
	}

	m.logger.Info("migration state reset")
}

func (m *Manager) fail(from, to bridge.Impl, err error) error {
	m.mu.Lock()
	m.state = State{
		Active:            from,
		Progress:          0,
		LastError:         err.Error(),
		FallbackAvailable: true,
	}
	snapshot := m.state
	cb := m.onProgress
	m.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	if m.collector != nil {
		m.collector.RecordMigration(err)
	}
	if m.bus != nil {
		_ = m.bus.Publish(&events.MigrationFailedEvent{
			BaseEvent: events.NewBase(events.MigrationFailed),
			From:      from,
			To:        to,
			Err:       err,
			FellBack:  true,
		})
	}

	m.logger.Error("implementation switch failed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Error(err))
	return err
}

func (m *Manager) setProgress(from, to bridge.Impl, progress int, stage string) {
	m.mu.Lock()
	m.state.Progress = progress
	snapshot := m.state
	cb := m.onProgress
	m.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
	if m.bus != nil {
		_ = m.bus.Publish(&events.MigrationProgressEvent{
			BaseEvent: events.NewBase(events.MigrationProgress),
			From:      from,
			To:        to,
			Progress:  progress,
			Stage:     stage,
		})
	}
}

func (m *Manager) publishOpened(wallet string, impl bridge.Impl) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(&events.SessionOpenedEvent{
		BaseEvent: events.NewBase(events.SessionOpened),
		Wallet:    wallet,
		Impl:      impl,
	})
}

func (m *Manager) publishClosed(wallet, reason string) {
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(&events.SessionClosedEvent{
		BaseEvent: events.NewBase(events.SessionClosed),
		Wallet:    wallet,
		Reason:    reason,
	})
}

func otherImpl(impl bridge.Impl) bridge.Impl {
	if impl == bridge.ImplLegacy {
		return bridge.ImplV2
	}
	return bridge.ImplLegacy
}
