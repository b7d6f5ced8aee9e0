// internal/bridge/bridge.go
package bridge

import (
	"context"
)

// Impl identifies which wallet-bridge integration a connector belongs to.
type Impl string

const (
	// ImplLegacy is the HTTP wallet daemon integration.
	ImplLegacy Impl = "legacy"
	// ImplV2 is the WebSocket session integration.
	ImplV2 Impl = "v2"
)

// RawAsset is a single asset entry as reported by a wallet bridge.
// Quantity is a decimal string: on-ledger amounts can exceed anything
// a JSON number survives.
type RawAsset struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// RawBalance is the unprocessed balance a session reports. Lovelace is
// carried apart from the asset list; the aggregation layer decides how
// to present it.
type RawBalance struct {
	Lovelace uint64     `json:"lovelace"`
	Assets   []RawAsset `json:"assets"`
}

// Connector is one wallet-extension integration. Enable asks the
// wallet for permission and returns a live session, mirroring the
// enable() entry point of the browser bridge standard.
type Connector interface {
	Name() string
	Implementation() Impl
	Available(ctx context.Context) bool
	Enable(ctx context.Context) (Session, error)
}

// Session is an enabled wallet handle. Implementations must be safe
// for concurrent use.
type Session interface {
	Wallet() string
	Balance(ctx context.Context) (*RawBalance, error)
	UsedAddresses(ctx context.Context) ([]string, error)
	SignTx(ctx context.Context, txCborHex string, partial bool) (string, error)
	SubmitTx(ctx context.Context, signedCborHex string) (string, error)
	Close() error
}

// PushSession is implemented by sessions that push balance updates on
// their own instead of relying on polling alone.
type PushSession interface {
	Session
	OnBalanceUpdate(fn func(RawBalance))
}
