// internal/bridge/wsbridge/session.go
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
)

// session is a live v2 bridge session over one managed socket.
type session struct {
	cfg    Config
	wallet string
	logger *zap.Logger
	worker *worker

	mu        sync.Mutex
	pending   map[string]chan frame
	sessionID string
	closed    bool
	onPush    func(bridge.RawBalance)

	readyOnce sync.Once
	ready     chan error
	closeOnce sync.Once
}

func newSession(cfg Config, wallet string, logger *zap.Logger) *session {
	s := &session{
		cfg:     cfg,
		wallet:  wallet,
		logger:  logger,
		pending: make(map[string]chan frame, 8),
		ready:   make(chan error, 1),
	}
	w := newWorker(s, logger)
	w.handshakeTimeout = cfg.HandshakeTimeout
	w.readTimeout = cfg.ReadTimeout
	w.pingInterval = cfg.PingInterval
	s.worker = w
	return s
}

// open starts the connection loop and waits for the first enable
// handshake to finish. The socket outlives the enable call, so the
// worker runs on its own context.
func (s *session) open(ctx context.Context) error {
	s.worker.start(context.Background())

	timer := time.NewTimer(s.cfg.HandshakeTimeout + s.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case err := <-s.ready:
		if err != nil {
			s.worker.stop()
			return err
		}
		return nil
	case <-ctx.Done():
		s.worker.stop()
		return ctx.Err()
	case <-timer.C:
		s.worker.stop()
		return fmt.Errorf("enable timed out after %s", s.cfg.HandshakeTimeout+s.cfg.CallTimeout)
	}
}

func (s *session) url() string { return s.cfg.URL }
func (s *session) id() string  { return "wsbridge:" + s.wallet }

// onConnect fires the wallet.enable handshake. The reply is picked up
// by onMessage once the read loop starts, so the write must not wait
// for it here.
func (s *session) onConnect(ctx context.Context, conn *websocket.Conn) error {
	params, err := json.Marshal(enableParams{Wallet: s.wallet})
	if err != nil {
		return err
	}
	req := frame{ID: uuid.NewString(), Method: methodWalletEnable, Params: params}

	ch := make(chan frame, 1)
	s.mu.Lock()
	s.pending[req.ID] = ch
	s.mu.Unlock()

	go s.awaitEnable(req.ID, ch)

	payload, err := json.Marshal(req)
	if err != nil {
		s.dropPending(req.ID)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.CallTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *session) awaitEnable(id string, ch chan frame) {
	timer := time.NewTimer(s.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			s.signalReady(resp.Error)
			return
		}
		var result enableResult
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			s.signalReady(fmt.Errorf("decode enable result: %w", err))
			return
		}
		s.mu.Lock()
		s.sessionID = result.SessionID
		s.mu.Unlock()
		s.logger.Info("wallet session enabled",
			zap.String("wallet", s.wallet),
			zap.String("session_id", result.SessionID))
		s.signalReady(nil)
	case <-timer.C:
		s.dropPending(id)
		s.signalReady(fmt.Errorf("enable timed out after %s", s.cfg.CallTimeout))
	}
}

// signalReady resolves the first enable exactly once. Failures on
// later re-enables (after a reconnect) are only logged.
func (s *session) signalReady(err error) {
	s.readyOnce.Do(func() { s.ready <- err })
	if err != nil {
		s.logger.Warn("enable handshake failed",
			zap.String("wallet", s.wallet),
			zap.Error(err))
	}
}

func (s *session) onMessage(ctx context.Context, msg []byte) {
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		s.logger.Warn("malformed frame",
			zap.ByteString("frame", msg),
			zap.Error(err))
		return
	}

	if f.ID != "" {
		s.mu.Lock()
		ch, ok := s.pending[f.ID]
		if ok {
			delete(s.pending, f.ID)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Warn("response for unknown id", zap.String("id", f.ID))
			return
		}
		ch <- f
		return
	}

	if f.Method == methodBalanceUpdate {
		s.handleBalancePush(f.Params)
		return
	}
	s.logger.Debug("unhandled push", zap.String("method", f.Method))
}

func (s *session) handleBalancePush(params json.RawMessage) {
	var wire wireBalance
	if err := json.Unmarshal(params, &wire); err != nil {
		s.logger.Warn("malformed balance push", zap.Error(err))
		return
	}
	bal, err := wire.toRaw()
	if err != nil {
		s.logger.Warn("malformed balance push", zap.Error(err))
		return
	}

	s.mu.Lock()
	fn := s.onPush
	s.mu.Unlock()
	if fn != nil {
		fn(*bal)
	}
}

// onDisconnect fails every in-flight call; the worker redials on its
// own and re-enables in onConnect.
func (s *session) onDisconnect(err error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]chan frame, 8)
	s.mu.Unlock()

	for _, ch := range pending {
		ch <- frame{Error: &frameError{Code: -1, Message: fmt.Sprintf("connection lost: %v", err)}}
	}
}

// call performs one request/response round trip.
func (s *session) call(ctx context.Context, method string, params, out any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return bridge.ErrSessionClosed
	}
	s.mu.Unlock()

	var raw json.RawMessage
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		raw = payload
	}

	req := frame{ID: uuid.NewString(), Method: method, Params: raw}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	ch := make(chan frame, 1)
	s.mu.Lock()
	s.pending[req.ID] = ch
	s.mu.Unlock()

	if err := s.worker.write(payload); err != nil {
		s.dropPending(req.ID)
		return err
	}

	timer := time.NewTimer(s.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	case <-timer.C:
		s.dropPending(req.ID)
		return fmt.Errorf("%s timed out after %s", method, s.cfg.CallTimeout)
	case <-ctx.Done():
		s.dropPending(req.ID)
		return ctx.Err()
	}
}

func (s *session) dropPending(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *session) Wallet() string { return s.wallet }

// Balance fetches the raw on-chain balance for the wallet.
func (s *session) Balance(ctx context.Context) (*bridge.RawBalance, error) {
	var wire wireBalance
	if err := s.call(ctx, methodWalletBalance, nil, &wire); err != nil {
		return nil, bridge.WrapOp(s.wallet, "balance", err)
	}
	bal, err := wire.toRaw()
	if err != nil {
		return nil, bridge.WrapOp(s.wallet, "balance", err)
	}
	return bal, nil
}

// UsedAddresses returns the wallet's known receive addresses.
func (s *session) UsedAddresses(ctx context.Context) ([]string, error) {
	var result addressesResult
	if err := s.call(ctx, methodWalletAddresses, nil, &result); err != nil {
		return nil, bridge.WrapOp(s.wallet, "addresses", err)
	}
	return result.Addresses, nil
}

// SignTx asks the wallet to sign the transaction CBOR.
func (s *session) SignTx(ctx context.Context, txCborHex string, partial bool) (string, error) {
	var result signResult
	err := s.call(ctx, methodTxSign, signParams{TxCbor: txCborHex, Partial: partial}, &result)
	if err != nil {
		return "", bridge.WrapOp(s.wallet, "sign", err)
	}
	if result.SignedCbor == "" {
		return "", bridge.WrapOp(s.wallet, "sign", fmt.Errorf("bridge returned empty signed transaction"))
	}
	return result.SignedCbor, nil
}

// SubmitTx submits a signed transaction and returns its hash.
func (s *session) SubmitTx(ctx context.Context, signedCborHex string) (string, error) {
	var result submitResult
	if err := s.call(ctx, methodTxSubmit, submitParams{SignedCbor: signedCborHex}, &result); err != nil {
		return "", bridge.WrapOp(s.wallet, "submit", err)
	}
	if result.TxHash == "" {
		return "", bridge.WrapOp(s.wallet, "submit", fmt.Errorf("bridge returned empty tx hash"))
	}

	s.logger.Info("transaction submitted",
		zap.String("wallet", s.wallet),
		zap.String("tx_hash", result.TxHash))
	return result.TxHash, nil
}

// OnBalanceUpdate registers the callback invoked for balance.update
// pushes. Only the latest callback is kept.
func (s *session) OnBalanceUpdate(fn func(bridge.RawBalance)) {
	s.mu.Lock()
	s.onPush = fn
	s.mu.Unlock()
}

// Close ends the session and tears down the socket. Safe to call more
// than once; the session.end frame is best effort.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.call(ctx, methodSessionEnd, nil, nil); err != nil {
			s.logger.Debug("session end failed",
				zap.String("wallet", s.wallet),
				zap.Error(err))
		}

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.worker.stop()
	})
	return nil
}
