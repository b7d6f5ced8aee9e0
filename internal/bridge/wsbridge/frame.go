// internal/bridge/wsbridge/frame.go
package wsbridge

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cardexlabs/cardex/internal/bridge"
)

const (
	methodWalletEnable    = "wallet.enable"
	methodWalletStatus    = "wallet.status"
	methodWalletBalance   = "wallet.balance"
	methodWalletAddresses = "wallet.addresses"
	methodTxSign          = "tx.sign"
	methodTxSubmit        = "tx.submit"
	methodSessionEnd      = "session.end"

	// Server-initiated push.
	methodBalanceUpdate = "balance.update"
)

// frame is the v2 wire envelope. Requests carry id+method+params,
// responses echo the id with result or error, pushes carry a method
// and params with no id.
type frame struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *frameError     `json:"error,omitempty"`
}

type frameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *frameError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

type enableParams struct {
	Wallet string `json:"wallet"`
}

type enableResult struct {
	SessionID string `json:"session_id"`
}

type statusParams struct {
	Wallet string `json:"wallet"`
}

type statusResult struct {
	Available bool `json:"available"`
}

type wireBalance struct {
	Lovelace string            `json:"lovelace"`
	Assets   []bridge.RawAsset `json:"assets"`
}

func (b wireBalance) toRaw() (*bridge.RawBalance, error) {
	lovelace, err := strconv.ParseUint(b.Lovelace, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lovelace quantity %q: %w", b.Lovelace, err)
	}
	return &bridge.RawBalance{Lovelace: lovelace, Assets: b.Assets}, nil
}

type addressesResult struct {
	Addresses []string `json:"addresses"`
}

type signParams struct {
	TxCbor  string `json:"tx_cbor"`
	Partial bool   `json:"partial"`
}

type signResult struct {
	SignedCbor string `json:"signed_cbor"`
}

type submitParams struct {
	SignedCbor string `json:"signed_cbor"`
}

type submitResult struct {
	TxHash string `json:"tx_hash"`
}
