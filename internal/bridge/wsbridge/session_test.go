// internal/bridge/wsbridge/session_test.go
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/cardexlabs/cardex/internal/bridge"
)

const testUnit = "1f7a58a1aa1e6b047a42109ade331ce26c9c2cce027d043ff264fb1f4d494c4b"

// bridgeServer runs a fake v2 bridge. handle receives every request
// frame and writes whatever frames it wants back on the connection.
func bridgeServer(t *testing.T, handle func(conn *websocket.Conn, f frame)) (*httptest.Server, string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			handle(conn, f)
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func reply(conn *websocket.Conn, id string, v any) {
	raw, _ := json.Marshal(v)
	_ = conn.WriteJSON(&frame{ID: id, Result: raw})
}

func walletHandler(conn *websocket.Conn, f frame) {
	switch f.Method {
	case methodWalletEnable:
		reply(conn, f.ID, enableResult{SessionID: "sess-9"})
	case methodWalletStatus:
		reply(conn, f.ID, statusResult{Available: true})
	case methodWalletBalance:
		reply(conn, f.ID, wireBalance{
			Lovelace: "7000000",
			Assets:   []bridge.RawAsset{{Unit: testUnit, Quantity: "5"}},
		})
	case methodWalletAddresses:
		reply(conn, f.ID, addressesResult{Addresses: []string{"addr1qxy"}})
	case methodTxSign:
		var p signParams
		_ = json.Unmarshal(f.Params, &p)
		reply(conn, f.ID, signResult{SignedCbor: p.TxCbor + "ff"})
	case methodTxSubmit:
		reply(conn, f.ID, submitResult{TxHash: "cafe01"})
	case methodSessionEnd:
		reply(conn, f.ID, struct{}{})
	}
}

func testConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 2 * time.Second,
		ReadTimeout:      5 * time.Second,
		PingInterval:     time.Second,
		CallTimeout:      2 * time.Second,
	}
}

func TestSessionRoundTrips(t *testing.T) {
	srv, url := bridgeServer(t, walletHandler)
	defer srv.Close()

	ctx := context.Background()
	c := New(testConfig(url), "lace", zaptest.NewLogger(t))
	if c.Implementation() != bridge.ImplV2 {
		t.Errorf("Expected v2 implementation, got %s", c.Implementation())
	}

	sess, err := c.Enable(ctx)
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	defer sess.Close()

	if sess.Wallet() != "lace" {
		t.Errorf("Expected wallet lace, got %s", sess.Wallet())
	}

	bal, err := sess.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if bal.Lovelace != 7_000_000 {
		t.Errorf("Expected 7000000 lovelace, got %d", bal.Lovelace)
	}
	if len(bal.Assets) != 1 || bal.Assets[0].Unit != testUnit {
		t.Errorf("Unexpected assets: %+v", bal.Assets)
	}

	addrs, err := sess.UsedAddresses(ctx)
	if err != nil {
		t.Fatalf("UsedAddresses failed: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "addr1qxy" {
		t.Errorf("Unexpected addresses: %v", addrs)
	}

	signed, err := sess.SignTx(ctx, "84a100", false)
	if err != nil {
		t.Fatalf("SignTx failed: %v", err)
	}
	if signed != "84a100ff" {
		t.Errorf("Expected 84a100ff, got %s", signed)
	}

	hash, err := sess.SubmitTx(ctx, signed)
	if err != nil {
		t.Fatalf("SubmitTx failed: %v", err)
	}
	if hash != "cafe01" {
		t.Errorf("Expected cafe01, got %s", hash)
	}
}

func TestSessionClosedCalls(t *testing.T) {
	srv, url := bridgeServer(t, walletHandler)
	defer srv.Close()

	sess, err := New(testConfig(url), "lace", zaptest.NewLogger(t)).Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := sess.Balance(context.Background()); !errors.Is(err, bridge.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed after close, got %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}

func TestAvailableProbe(t *testing.T) {
	srv, url := bridgeServer(t, walletHandler)

	c := New(testConfig(url), "lace", zaptest.NewLogger(t))
	if !c.Available(context.Background()) {
		t.Error("Expected wallet to be available")
	}

	srv.Close()
	if c.Available(context.Background()) {
		t.Error("Expected unavailable after server shutdown")
	}
}

func TestBalancePush(t *testing.T) {
	handler := func(conn *websocket.Conn, f frame) {
		switch f.Method {
		case methodWalletEnable:
			reply(conn, f.ID, enableResult{SessionID: "sess-9"})
		case methodWalletAddresses:
			reply(conn, f.ID, addressesResult{})
			params, _ := json.Marshal(wireBalance{Lovelace: "9000000"})
			_ = conn.WriteJSON(&frame{Method: methodBalanceUpdate, Params: params})
		case methodSessionEnd:
			reply(conn, f.ID, struct{}{})
		}
	}
	srv, url := bridgeServer(t, handler)
	defer srv.Close()

	sess, err := New(testConfig(url), "lace", zaptest.NewLogger(t)).Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	defer sess.Close()

	push, ok := sess.(bridge.PushSession)
	if !ok {
		t.Fatal("Expected session to support balance pushes")
	}

	got := make(chan bridge.RawBalance, 1)
	push.OnBalanceUpdate(func(b bridge.RawBalance) {
		select {
		case got <- b:
		default:
		}
	})

	if _, err := sess.UsedAddresses(context.Background()); err != nil {
		t.Fatalf("UsedAddresses failed: %v", err)
	}

	select {
	case b := <-got:
		if b.Lovelace != 9_000_000 {
			t.Errorf("Expected 9000000 lovelace, got %d", b.Lovelace)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for balance push")
	}
}

func TestCallErrorAndTimeout(t *testing.T) {
	handler := func(conn *websocket.Conn, f frame) {
		switch f.Method {
		case methodWalletEnable:
			reply(conn, f.ID, enableResult{SessionID: "sess-9"})
		case methodTxSign:
			_ = conn.WriteJSON(&frame{ID: f.ID, Error: &frameError{Code: 4, Message: "user declined"}})
		case methodWalletBalance:
			// swallowed on purpose: exercises the per-call timeout
		}
	}
	srv, url := bridgeServer(t, handler)
	defer srv.Close()

	cfg := testConfig(url)
	cfg.CallTimeout = 300 * time.Millisecond
	sess, err := New(cfg, "lace", zaptest.NewLogger(t)).Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	defer sess.Close()

	_, err = sess.SignTx(context.Background(), "84a100", false)
	if err == nil || !strings.Contains(err.Error(), "user declined") {
		t.Errorf("Expected declined error, got %v", err)
	}

	_, err = sess.Balance(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout error, got %v", err)
	}
}
