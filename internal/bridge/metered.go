// internal/bridge/metered.go
package bridge

import (
	"context"
	"time"

	"github.com/cardexlabs/cardex/internal/metrics"
)

// WithMetrics wraps a session so every bridge call is measured. A nil
// collector returns the session unchanged. Push-capable sessions stay
// push-capable.
func WithMetrics(s Session, impl Impl, collector *metrics.Collector) Session {
	if s == nil || collector == nil {
		return s
	}
	m := &meteredSession{s: s, impl: string(impl), collector: collector}
	if _, ok := s.(PushSession); ok {
		return &meteredPushSession{meteredSession: m}
	}
	return m
}

type meteredSession struct {
	s         Session
	impl      string
	collector *metrics.Collector
}

func (m *meteredSession) Wallet() string { return m.s.Wallet() }

func (m *meteredSession) Balance(ctx context.Context) (*RawBalance, error) {
	start := time.Now()
	bal, err := m.s.Balance(ctx)
	m.collector.RecordBridgeCall(m.impl, "balance", time.Since(start), err)
	return bal, err
}

func (m *meteredSession) UsedAddresses(ctx context.Context) ([]string, error) {
	start := time.Now()
	addrs, err := m.s.UsedAddresses(ctx)
	m.collector.RecordBridgeCall(m.impl, "addresses", time.Since(start), err)
	return addrs, err
}

func (m *meteredSession) SignTx(ctx context.Context, txCborHex string, partial bool) (string, error) {
	start := time.Now()
	signed, err := m.s.SignTx(ctx, txCborHex, partial)
	m.collector.RecordBridgeCall(m.impl, "sign", time.Since(start), err)
	return signed, err
}

func (m *meteredSession) SubmitTx(ctx context.Context, signedCborHex string) (string, error) {
	start := time.Now()
	hash, err := m.s.SubmitTx(ctx, signedCborHex)
	m.collector.RecordBridgeCall(m.impl, "submit", time.Since(start), err)
	return hash, err
}

func (m *meteredSession) Close() error { return m.s.Close() }

type meteredPushSession struct {
	*meteredSession
}

func (m *meteredPushSession) OnBalanceUpdate(fn func(RawBalance)) {
	m.s.(PushSession).OnBalanceUpdate(fn)
}
