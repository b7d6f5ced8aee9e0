// internal/bridge/httpbridge/session.go
package httpbridge

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
)

type balanceResponse struct {
	Lovelace string            `json:"lovelace"`
	Assets   []bridge.RawAsset `json:"assets"`
}

type addressesResponse struct {
	Addresses []string `json:"addresses"`
}

type signRequest struct {
	SessionID string `json:"session_id"`
	TxCbor    string `json:"tx_cbor"`
	Partial   bool   `json:"partial"`
}

type signResponse struct {
	SignedCbor string `json:"signed_cbor"`
}

type submitRequest struct {
	SessionID  string `json:"session_id"`
	SignedCbor string `json:"signed_cbor"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash"`
}

type disconnectRequest struct {
	SessionID string `json:"session_id"`
}

// session is a live wallet session on the legacy daemon.
type session struct {
	conn *Connector
	id   string

	mu     sync.Mutex
	closed bool
}

func (s *session) Wallet() string { return s.conn.wallet }

// Balance fetches the raw on-chain balance for the wallet.
func (s *session) Balance(ctx context.Context) (*bridge.RawBalance, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/wallets/%s/balance?session=%s", s.conn.baseURL, s.conn.wallet, s.id)
	var resp balanceResponse
	if err := s.conn.getJSON(ctx, "balance", url, &resp); err != nil {
		return nil, err
	}

	lovelace, err := strconv.ParseUint(resp.Lovelace, 10, 64)
	if err != nil {
		return nil, bridge.WrapOp(s.conn.wallet, "balance",
			fmt.Errorf("invalid lovelace quantity %q: %w", resp.Lovelace, err))
	}

	return &bridge.RawBalance{Lovelace: lovelace, Assets: resp.Assets}, nil
}

// UsedAddresses returns the wallet's known receive addresses.
func (s *session) UsedAddresses(ctx context.Context) ([]string, error) {
	if err := s.active(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/wallets/%s/addresses?session=%s", s.conn.baseURL, s.conn.wallet, s.id)
	var resp addressesResponse
	if err := s.conn.getJSON(ctx, "addresses", url, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// SignTx asks the wallet to sign the transaction CBOR.
func (s *session) SignTx(ctx context.Context, txCborHex string, partial bool) (string, error) {
	if err := s.active(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/wallets/%s/sign", s.conn.baseURL, s.conn.wallet)
	req := signRequest{SessionID: s.id, TxCbor: txCborHex, Partial: partial}

	var resp signResponse
	if err := s.conn.postJSON(ctx, "sign", url, req, &resp); err != nil {
		return "", err
	}
	if resp.SignedCbor == "" {
		return "", bridge.WrapOp(s.conn.wallet, "sign", fmt.Errorf("daemon returned empty signed transaction"))
	}
	return resp.SignedCbor, nil
}

// SubmitTx submits a signed transaction and returns its hash.
func (s *session) SubmitTx(ctx context.Context, signedCborHex string) (string, error) {
	if err := s.active(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/wallets/%s/submit", s.conn.baseURL, s.conn.wallet)
	req := submitRequest{SessionID: s.id, SignedCbor: signedCborHex}

	var resp submitResponse
	if err := s.conn.postJSON(ctx, "submit", url, req, &resp); err != nil {
		return "", err
	}
	if resp.TxHash == "" {
		return "", bridge.WrapOp(s.conn.wallet, "submit", fmt.Errorf("daemon returned empty tx hash"))
	}

	s.conn.logger.Info("transaction submitted",
		zap.String("wallet", s.conn.wallet),
		zap.String("tx_hash", resp.TxHash))
	return resp.TxHash, nil
}

// Close releases the daemon session. Safe to call more than once; the
// disconnect request is best effort.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1/wallets/%s/disconnect", s.conn.baseURL, s.conn.wallet)
	if err := s.conn.postJSON(ctx, "disconnect", url, disconnectRequest{SessionID: s.id}, nil); err != nil {
		s.conn.logger.Debug("session disconnect failed",
			zap.String("wallet", s.conn.wallet),
			zap.Error(err))
	}
	return nil
}

func (s *session) active() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return bridge.WrapOp(s.conn.wallet, "session", bridge.ErrSessionClosed)
	}
	return nil
}
