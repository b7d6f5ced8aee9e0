// internal/bridge/httpbridge/connector.go
package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxTries = 3

	retryInitialInterval = 200 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// Config holds the legacy daemon connection settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	MaxTries uint
}

// Connector exposes one wallet served by the legacy bridge daemon.
type Connector struct {
	client   *http.Client
	logger   *zap.Logger
	baseURL  string
	wallet   string
	maxTries uint
}

type statusResponse struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

type enableResponse struct {
	SessionID string `json:"session_id"`
}

// New creates a connector for the named wallet.
func New(cfg Config, wallet string, logger *zap.Logger) *Connector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	return &Connector{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:   logger.Named("httpbridge"),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		wallet:   wallet,
		maxTries: maxTries,
	}
}

func (c *Connector) Name() string                { return c.wallet }
func (c *Connector) Implementation() bridge.Impl { return bridge.ImplLegacy }

// Available reports whether the daemon can reach the wallet right now.
func (c *Connector) Available(ctx context.Context) bool {
	url := fmt.Sprintf("%s/v1/wallets/%s/status", c.baseURL, c.wallet)

	var status statusResponse
	if err := c.getJSON(ctx, "status", url, &status); err != nil {
		c.logger.Debug("wallet status check failed",
			zap.String("wallet", c.wallet),
			zap.Error(err))
		return false
	}
	return status.Available
}

// Enable opens a wallet session on the daemon.
func (c *Connector) Enable(ctx context.Context) (bridge.Session, error) {
	url := fmt.Sprintf("%s/v1/wallets/%s/enable", c.baseURL, c.wallet)

	var enabled enableResponse
	if err := c.postJSON(ctx, "enable", url, nil, &enabled); err != nil {
		return nil, err
	}
	if enabled.SessionID == "" {
		return nil, bridge.WrapOp(c.wallet, "enable", fmt.Errorf("daemon returned empty session id"))
	}

	c.logger.Info("wallet session enabled",
		zap.String("wallet", c.wallet),
		zap.String("session_id", enabled.SessionID))

	return &session{conn: c, id: enabled.SessionID}, nil
}

// getJSON performs an idempotent GET with capped exponential retries.
func (c *Connector) getJSON(ctx context.Context, op, url string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval

	operation := func() (struct{}, error) {
		return struct{}{}, c.doJSON(ctx, http.MethodGet, url, nil, out)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return bridge.WrapOp(c.wallet, op, err)
	}
	return nil
}

// postJSON performs a single-shot POST. Mutating calls are never retried:
// a duplicated sign or submit is worse than a failed one.
func (c *Connector) postJSON(ctx context.Context, op, url string, in, out any) error {
	if err := c.doJSON(ctx, http.MethodPost, url, in, out); err != nil {
		return bridge.WrapOp(c.wallet, op, err)
	}
	return nil
}

func (c *Connector) doJSON(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("daemon request completed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("%w: daemon does not know wallet %q", bridge.ErrNoWallet, c.wallet))
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	case resp.StatusCode >= 400:
		respBody, _ := io.ReadAll(resp.Body)
		return backoff.Permanent(fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
