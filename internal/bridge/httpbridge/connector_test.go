// internal/bridge/httpbridge/connector_test.go
package httpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/cardexlabs/cardex/internal/bridge"
)

const testUnit = "1f7a58a1aa1e6b047a42109ade331ce26c9c2cce027d043ff264fb1f4d494c4b"

func newTestConnector(t *testing.T, srv *httptest.Server, wallet string, maxTries uint) *Connector {
	t.Helper()
	cfg := Config{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxTries: maxTries}
	return New(cfg, wallet, zaptest.NewLogger(t))
}

func TestConnectorAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallets/eternl/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(statusResponse{Available: true, Version: "1.4.2"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestConnector(t, srv, "eternl", 1)
	if !c.Available(context.Background()) {
		t.Error("Expected wallet to be available")
	}

	missing := newTestConnector(t, srv, "nami", 1)
	if missing.Available(context.Background()) {
		t.Error("Expected unknown wallet to be unavailable")
	}
}

func TestSessionLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallets/eternl/enable", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(enableResponse{SessionID: "sess-1"})
	})
	mux.HandleFunc("/v1/wallets/eternl/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session") != "sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(balanceResponse{
			Lovelace: "5000000",
			Assets:   []bridge.RawAsset{{Unit: testUnit, Quantity: "42"}},
		})
	})
	mux.HandleFunc("/v1/wallets/eternl/addresses", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(addressesResponse{Addresses: []string{"addr1qxy", "addr1qab"}})
	})
	mux.HandleFunc("/v1/wallets/eternl/sign", func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID != "sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(signResponse{SignedCbor: req.TxCbor + "ff"})
	})
	mux.HandleFunc("/v1/wallets/eternl/submit", func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SignedCbor == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(submitResponse{TxHash: "deadbeef"})
	})
	mux.HandleFunc("/v1/wallets/eternl/disconnect", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := newTestConnector(t, srv, "eternl", 1)

	sess, err := c.Enable(ctx)
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if sess.Wallet() != "eternl" {
		t.Errorf("Expected wallet eternl, got %s", sess.Wallet())
	}

	bal, err := sess.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if bal.Lovelace != 5_000_000 {
		t.Errorf("Expected 5000000 lovelace, got %d", bal.Lovelace)
	}
	if len(bal.Assets) != 1 || bal.Assets[0].Unit != testUnit || bal.Assets[0].Quantity != "42" {
		t.Errorf("Unexpected assets: %+v", bal.Assets)
	}

	addrs, err := sess.UsedAddresses(ctx)
	if err != nil {
		t.Fatalf("UsedAddresses failed: %v", err)
	}
	if len(addrs) != 2 {
		t.Errorf("Expected 2 addresses, got %d", len(addrs))
	}

	signed, err := sess.SignTx(ctx, "84a300", false)
	if err != nil {
		t.Fatalf("SignTx failed: %v", err)
	}
	if signed != "84a300ff" {
		t.Errorf("Expected 84a300ff, got %s", signed)
	}

	hash, err := sess.SubmitTx(ctx, signed)
	if err != nil {
		t.Fatalf("SubmitTx failed: %v", err)
	}
	if hash != "deadbeef" {
		t.Errorf("Expected deadbeef, got %s", hash)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := sess.Balance(ctx); !errors.Is(err, bridge.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed after close, got %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}
}

func TestEnableUnknownWallet(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()

	c := newTestConnector(t, srv, "ghost", 1)
	_, err := c.Enable(context.Background())
	if !errors.Is(err, bridge.ErrNoWallet) {
		t.Fatalf("Expected ErrNoWallet, got %v", err)
	}

	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		t.Fatal("Expected *bridge.Error")
	}
	if bridgeErr.Op != "enable" || bridgeErr.Wallet != "ghost" {
		t.Errorf("Error fields wrong: %+v", bridgeErr)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallets/eternl/status", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(statusResponse{Available: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestConnector(t, srv, "eternl", 3)
	if !c.Available(context.Background()) {
		t.Error("Expected availability after retry")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallets/eternl/status", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestConnector(t, srv, "eternl", 3)
	if c.Available(context.Background()) {
		t.Error("Expected unavailable on client error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Client errors must not be retried, got %d attempts", got)
	}
}

func TestBalanceInvalidLovelace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/wallets/eternl/enable", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(enableResponse{SessionID: "sess-1"})
	})
	mux.HandleFunc("/v1/wallets/eternl/balance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(balanceResponse{Lovelace: "not-a-number"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := newTestConnector(t, srv, "eternl", 1).Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	_, err = sess.Balance(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid lovelace") {
		t.Errorf("Expected invalid lovelace error, got %v", err)
	}
}
