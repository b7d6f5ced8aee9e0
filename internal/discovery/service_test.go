// internal/discovery/service_test.go
package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/metrics"
)

func tokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(testTokens())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func shutdownBus(t *testing.T, bus *events.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := bus.Shutdown(ctx); err != nil {
		t.Errorf("bus shutdown: %v", err)
	}
}

func TestServiceRefreshNow(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1}, logger)
	bus := events.NewBus(logger, 16)
	defer shutdownBus(t, bus)

	svc := NewService(client, ServiceConfig{MinLiquidityAda: 1000}, bus, metrics.NewCollector(), logger)
	defer svc.Stop()

	got := make(chan events.Event, 1)
	bus.SubscribeFunc(events.TokenListUpdated, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	snap := svc.RefreshNow(context.Background())
	if snap.Err != "" {
		t.Fatalf("unexpected snapshot error: %s", snap.Err)
	}
	if len(snap.Tokens) != 4 {
		t.Fatalf("expected ADA + 3 tokens, got %d", len(snap.Tokens))
	}

	ada := snap.Tokens[0]
	if ada.Symbol != chain.AdaSymbol || !ada.IsNative || ada.Unit != chain.LovelaceUnit {
		t.Errorf("first entry is not native ADA: %+v", ada)
	}
	if ada.LowLiquidity {
		t.Error("ADA must never be flagged low liquidity")
	}

	want := []string{"ADA", "MILK", "WMT", "SNEK"}
	for i, symbol := range want {
		if snap.Tokens[i].Symbol != symbol {
			t.Fatalf("token %d = %s, want %s", i, snap.Tokens[i].Symbol, symbol)
		}
	}

	// 400 ADA sits under the 1000 ADA threshold; exactly 1000 does not.
	if !snap.Tokens[2].LowLiquidity {
		t.Error("WMT should be flagged low liquidity")
	}
	if snap.Tokens[1].LowLiquidity || snap.Tokens[3].LowLiquidity {
		t.Error("only WMT should be flagged")
	}

	if _, ok := svc.Find(milkPolicy + "4d494c4b"); !ok {
		t.Error("Find should locate MILK by unit")
	}

	latest, ok := svc.History().Latest()
	if !ok {
		t.Fatal("successful refresh should record a history point")
	}
	if latest.TokenCount != 4 {
		t.Errorf("history TokenCount = %d, want 4", latest.TokenCount)
	}
	wantReserve := uint64(2_500_000_000_000 + 400_000_000 + 1_000_000_000)
	if latest.TotalAdaReserve != wantReserve {
		t.Errorf("TotalAdaReserve = %d, want %d", latest.TotalAdaReserve, wantReserve)
	}

	select {
	case e := <-got:
		update, ok := e.(*events.TokenListUpdatedEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", e)
		}
		if update.Count != 4 || update.LowLiquidity != 1 || update.Err != "" {
			t.Errorf("unexpected event: %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for token list event")
	}
}

func TestServiceDropsApiNativeEntries(t *testing.T) {
	logger := zaptest.NewLogger(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		list := append([]apiToken{{Symbol: "ADA", Decimals: 6, IsNative: true}}, testTokens()...)
		_ = json.NewEncoder(w).Encode(list)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1}, logger)
	svc := NewService(client, ServiceConfig{MinLiquidityAda: 1000}, nil, nil, logger)
	defer svc.Stop()

	snap := svc.RefreshNow(context.Background())
	native := 0
	for _, tok := range snap.Tokens {
		if tok.IsNative {
			native++
		}
	}
	if native != 1 {
		t.Errorf("expected exactly one native entry, got %d", native)
	}
	if len(snap.Tokens) != 4 {
		t.Errorf("expected 4 tokens, got %d", len(snap.Tokens))
	}
}

func TestServiceRefreshError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indexer down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1}, logger)
	bus := events.NewBus(logger, 16)
	defer shutdownBus(t, bus)

	svc := NewService(client, ServiceConfig{MinLiquidityAda: 1000}, bus, metrics.NewCollector(), logger)
	defer svc.Stop()

	got := make(chan events.Event, 1)
	bus.SubscribeFunc(events.TokenListUpdated, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	snap := svc.RefreshNow(ctx)
	if snap.Err == "" {
		t.Fatal("expected snapshot error")
	}
	if snap.Tokens == nil {
		t.Error("error snapshot must carry an empty list, not nil")
	}
	if len(snap.Tokens) != 0 {
		t.Errorf("error snapshot must be empty, got %d tokens", len(snap.Tokens))
	}
	if _, ok := svc.History().Latest(); ok {
		t.Error("failed refresh must not record a history point")
	}

	select {
	case e := <-got:
		update, ok := e.(*events.TokenListUpdatedEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", e)
		}
		if update.Count != 0 || update.Err == "" {
			t.Errorf("unexpected event: %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestServicePolling(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1}, logger)
	svc := NewService(client, ServiceConfig{Refresh: 50 * time.Millisecond, MinLiquidityAda: 1000}, nil, nil, logger)

	svc.Start()
	time.Sleep(180 * time.Millisecond)
	svc.Stop()

	if n := calls.Load(); n < 2 {
		t.Errorf("expected at least 2 polls, got %d", n)
	}

	stopped := calls.Load()
	time.Sleep(120 * time.Millisecond)
	if calls.Load() != stopped {
		t.Error("polling continued after Stop")
	}
}

func TestServiceZeroIntervalDisablesPolling(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 1}, logger)
	svc := NewService(client, ServiceConfig{Refresh: 0, MinLiquidityAda: 1000}, nil, nil, logger)
	defer svc.Stop()

	svc.Start()
	time.Sleep(80 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no automatic polls, got %d", n)
	}

	snap := svc.RefreshNow(context.Background())
	if len(snap.Tokens) != 4 {
		t.Errorf("manual refresh returned %d tokens, want 4", len(snap.Tokens))
	}
}
