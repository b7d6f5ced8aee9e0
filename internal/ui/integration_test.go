package ui_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/ui"
	"github.com/cardexlabs/cardex/internal/ui/state"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newTestDiscovery creates a service that is never started; the bridge
// only calls Snapshot on it.
func newTestDiscovery(logger *zap.Logger) *discovery.Service {
	client := discovery.NewClient(discovery.ClientConfig{BaseURL: "http://127.0.0.1:1"}, logger)
	return discovery.NewService(client, discovery.ServiceConfig{
		Refresh:         time.Hour,
		MinLiquidityAda: 1_000,
	}, nil, nil, logger)
}

func drainUIBus() {
	for {
		select {
		case <-ui.Bus:
			continue
		default:
		}
		return
	}
}

// waitForMsg pulls from the UI bus until a message of the wanted type
// arrives or the deadline passes. The bridge may interleave other
// forwarded messages.
func waitForMsg[T tea.Msg](t *testing.T, timeout time.Duration) (T, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-ui.Bus:
			if typed, ok := msg.(T); ok {
				return typed, true
			}
		case <-deadline:
			var zero T
			return zero, false
		}
	}
}

func TestBridgeForwardsTokenListUpdates(t *testing.T) {
	logger := zap.NewNop()
	bus := events.NewBus(logger, 16)
	defer func() { _ = bus.Shutdown(testCtx(t)) }()

	cache := state.NewUICache(logger)
	tokens := newTestDiscovery(logger)

	eventBridge := ui.BridgeEvents(bus, tokens, cache, logger)
	defer eventBridge.Close()

	drainUIBus()

	err := bus.Publish(&events.TokenListUpdatedEvent{
		BaseEvent: events.NewBase(events.TokenListUpdated),
		Count:     2,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if _, ok := waitForMsg[ui.TokenListMsg](t, 2*time.Second); !ok {
		t.Fatal("Expected a TokenListMsg on the UI bus")
	}
}

func TestBridgeForwardsSessionLifecycle(t *testing.T) {
	logger := zap.NewNop()
	bus := events.NewBus(logger, 16)
	defer func() { _ = bus.Shutdown(testCtx(t)) }()

	cache := state.NewUICache(logger)
	tokens := newTestDiscovery(logger)

	eventBridge := ui.BridgeEvents(bus, tokens, cache, logger)
	defer eventBridge.Close()

	drainUIBus()

	_ = bus.Publish(&events.SessionOpenedEvent{
		BaseEvent: events.NewBase(events.SessionOpened),
		Wallet:    "eternl",
		Impl:      bridge.ImplV2,
	})

	opened, ok := waitForMsg[ui.SessionMsg](t, 2*time.Second)
	if !ok {
		t.Fatal("Expected a SessionMsg on the UI bus")
	}
	if !opened.Connected || opened.Wallet != "eternl" || opened.Impl != bridge.ImplV2 {
		t.Errorf("Unexpected session msg: %+v", opened)
	}

	// Cache side effect: header state reflects the open session
	waitFor(t, 2*time.Second, func() bool {
		conn := cache.Connection()
		return conn.Connected && conn.Wallet == "eternl"
	}, "cache connection never marked connected")

	_ = bus.Publish(&events.SessionClosedEvent{
		BaseEvent: events.NewBase(events.SessionClosed),
		Wallet:    "eternl",
		Reason:    "user disconnect",
	})

	closed, ok := waitForMsg[ui.SessionMsg](t, 2*time.Second)
	if !ok {
		t.Fatal("Expected a SessionMsg for the close")
	}
	if closed.Connected {
		t.Error("Expected Connected=false after SessionClosed")
	}
	if closed.Reason != "user disconnect" {
		t.Errorf("Expected close reason to pass through, got %q", closed.Reason)
	}
}

func TestBridgeForwardsMigrationOutcomes(t *testing.T) {
	logger := zap.NewNop()
	bus := events.NewBus(logger, 16)
	defer func() { _ = bus.Shutdown(testCtx(t)) }()

	cache := state.NewUICache(logger)
	tokens := newTestDiscovery(logger)

	eventBridge := ui.BridgeEvents(bus, tokens, cache, logger)
	defer eventBridge.Close()

	drainUIBus()

	_ = bus.Publish(&events.MigrationCompletedEvent{
		BaseEvent: events.NewBase(events.MigrationCompleted),
		To:        bridge.ImplV2,
	})

	success, ok := waitForMsg[ui.SuccessMsg](t, 2*time.Second)
	if !ok {
		t.Fatal("Expected a SuccessMsg for the completed migration")
	}
	if success.Title != "Migration complete" {
		t.Errorf("Unexpected title: %q", success.Title)
	}

	sent, dropped := eventBridge.Stats()
	t.Logf("bridge forwarded %d, dropped %d", sent, dropped)
	if sent == 0 {
		t.Error("Expected the bridge to have forwarded messages")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
