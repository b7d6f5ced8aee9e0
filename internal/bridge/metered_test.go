// internal/bridge/metered_test.go
package bridge

import (
	"context"
	"testing"

	"github.com/cardexlabs/cardex/internal/metrics"
)

type plainSession struct{ wallet string }

func (s *plainSession) Wallet() string { return s.wallet }

func (s *plainSession) Balance(context.Context) (*RawBalance, error) {
	return &RawBalance{Lovelace: 7}, nil
}

func (s *plainSession) UsedAddresses(context.Context) ([]string, error) {
	return []string{"addr1"}, nil
}

func (s *plainSession) SignTx(context.Context, string, bool) (string, error) { return "signed", nil }

func (s *plainSession) SubmitTx(context.Context, string) (string, error) { return "hash", nil }

func (s *plainSession) Close() error { return nil }

type pushStubSession struct {
	plainSession
	fn func(RawBalance)
}

func (s *pushStubSession) OnBalanceUpdate(fn func(RawBalance)) { s.fn = fn }

func TestWithMetricsPassthrough(t *testing.T) {
	inner := &plainSession{wallet: "eternl"}
	sess := WithMetrics(inner, ImplLegacy, metrics.NewCollector())

	if got := sess.Wallet(); got != "eternl" {
		t.Errorf("Wallet() = %q", got)
	}
	bal, err := sess.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Lovelace != 7 {
		t.Errorf("Lovelace = %d, want 7", bal.Lovelace)
	}
	if _, ok := sess.(PushSession); ok {
		t.Error("plain session must not become push-capable")
	}
}

func TestWithMetricsNilCollector(t *testing.T) {
	inner := &plainSession{wallet: "eternl"}
	if got := WithMetrics(inner, ImplLegacy, nil); got != Session(inner) {
		t.Error("nil collector must return the session unchanged")
	}
}

func TestWithMetricsKeepsPush(t *testing.T) {
	inner := &pushStubSession{plainSession: plainSession{wallet: "lace"}}
	sess := WithMetrics(inner, ImplV2, metrics.NewCollector())

	ps, ok := sess.(PushSession)
	if !ok {
		t.Fatal("push capability lost through the wrapper")
	}

	var got RawBalance
	ps.OnBalanceUpdate(func(b RawBalance) { got = b })
	if inner.fn == nil {
		t.Fatal("callback did not reach the wrapped session")
	}
	inner.fn(RawBalance{Lovelace: 9})
	if got.Lovelace != 9 {
		t.Errorf("Lovelace = %d, want 9", got.Lovelace)
	}
}
