// internal/bridge/wsbridge/connector.go
package wsbridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
)

// Config holds the v2 bridge endpoint settings.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	CallTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultCallTimeout
	}
	return c
}

// Connector dials the v2 bridge service for one wallet.
type Connector struct {
	cfg    Config
	wallet string
	logger *zap.Logger
}

// New creates a connector for the named wallet.
func New(cfg Config, wallet string, logger *zap.Logger) *Connector {
	return &Connector{
		cfg:    cfg.withDefaults(),
		wallet: wallet,
		logger: logger.Named("wsbridge"),
	}
}

func (c *Connector) Name() string                { return c.wallet }
func (c *Connector) Implementation() bridge.Impl { return bridge.ImplV2 }

// Available dials the bridge and asks whether the wallet is reachable.
// The probe uses its own short-lived connection.
func (c *Connector) Available(ctx context.Context) bool {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.logger.Debug("status dial failed",
			zap.String("wallet", c.wallet),
			zap.Error(err))
		return false
	}
	defer conn.Close()

	params, err := json.Marshal(statusParams{Wallet: c.wallet})
	if err != nil {
		return false
	}
	req := frame{ID: uuid.NewString(), Method: methodWalletStatus, Params: params}

	deadline := time.Now().Add(c.cfg.CallTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(req); err != nil {
		return false
	}

	_ = conn.SetReadDeadline(deadline)
	for {
		var resp frame
		if err := conn.ReadJSON(&resp); err != nil {
			return false
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			return false
		}
		var status statusResult
		if err := json.Unmarshal(resp.Result, &status); err != nil {
			return false
		}
		return status.Available
	}
}

// Enable dials the bridge and performs the wallet.enable handshake. The
// returned session owns the socket and keeps it alive until Close.
func (c *Connector) Enable(ctx context.Context) (bridge.Session, error) {
	s := newSession(c.cfg, c.wallet, c.logger)
	if err := s.open(ctx); err != nil {
		return nil, bridge.WrapOp(c.wallet, "enable", err)
	}
	return s, nil
}
