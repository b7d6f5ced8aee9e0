// internal/discovery/api.go
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/chain"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 3
)

// Client talks to the discovery API.
type Client struct {
	client     *http.Client
	logger     *zap.Logger
	baseURL    string
	maxRetries int
}

// ClientConfig holds the discovery endpoint settings.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
}

type apiToken struct {
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	PolicyID     string `json:"policy"`
	AssetName    string `json:"assetName"`
	IsNative     bool   `json:"isNative"`
	AdaReserve   string `json:"adaReserve"`
	TokenReserve string `json:"tokenReserve"`
	PoolAddress  string `json:"poolAddress"`
}

type swapBuildRequest struct {
	Wallet     string `json:"wallet"`
	PoolAddr   string `json:"poolAddress"`
	InUnit     string `json:"inUnit"`
	OutUnit    string `json:"outUnit"`
	InQuantity string `json:"inQuantity"`
	MinOut     string `json:"minOut"`
}

type swapBuildResponse struct {
	TxCborHex string `json:"txCborHex"`
}

// NewClient creates a discovery API client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxConnsPerHost:     100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:     logger.Named("discovery_api"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
	}
}

// FetchTokens returns the tradable token list. minLiquidityAda is
// passed to the API as a hint; flagging below-threshold tokens stays a
// client-side concern.
func (c *Client) FetchTokens(ctx context.Context, minLiquidityAda uint64) ([]TokenInfo, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		tokens, err := c.fetchTokens(ctx, minLiquidityAda)
		if err == nil {
			return tokens, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.logger.Warn("retry fetching tokens",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second * time.Duration(1<<uint(attempt))):
			}
		}
	}
	return nil, fmt.Errorf("failed to fetch tokens after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) fetchTokens(ctx context.Context, minLiquidityAda uint64) ([]TokenInfo, error) {
	url := fmt.Sprintf("%s/v1/tokens?minLiquidity=%d", c.baseURL, minLiquidityAda)

	var raw []apiToken
	if err := c.getJSON(ctx, "/v1/tokens", url, &raw); err != nil {
		return nil, err
	}

	tokens := make([]TokenInfo, 0, len(raw))
	for _, entry := range raw {
		token, err := c.convertToken(entry)
		if err != nil {
			c.logger.Warn("skipping token",
				zap.String("symbol", entry.Symbol),
				zap.Error(err))
			continue
		}
		if chain.IsDeprecated(token.Unit) {
			// Kept in the list on purpose. The diagnostic battery is
			// the layer that flags deprecated identifiers.
			c.logger.Warn("deprecated token in feed",
				zap.String("symbol", token.Symbol),
				zap.String("unit", token.Unit))
		}
		tokens = append(tokens, token)
	}

	c.logger.Debug("tokens fetched",
		zap.Int("received", len(raw)),
		zap.Int("accepted", len(tokens)))

	return tokens, nil
}

// FetchMetadata resolves registry metadata for one asset unit.
func (c *Client) FetchMetadata(ctx context.Context, unit string) (*AssetMetadata, error) {
	url := fmt.Sprintf("%s/v1/metadata/%s", c.baseURL, unit)

	var meta AssetMetadata
	if err := c.getJSON(ctx, "/v1/metadata", url, &meta); err != nil {
		return nil, err
	}
	if meta.Symbol == "" {
		return nil, &Error{Endpoint: "/v1/metadata", Err: fmt.Errorf("no metadata for unit %s", unit)}
	}
	return &meta, nil
}

// BuildSwapTx asks the API to build an unsigned swap transaction and
// returns its CBOR hex.
func (c *Client) BuildSwapTx(ctx context.Context, wallet, poolAddr, inUnit, outUnit, inQuantity, minOut string) (string, error) {
	url := fmt.Sprintf("%s/v1/swap/build", c.baseURL)
	req := swapBuildRequest{
		Wallet:     wallet,
		PoolAddr:   poolAddr,
		InUnit:     inUnit,
		OutUnit:    outUnit,
		InQuantity: inQuantity,
		MinOut:     minOut,
	}

	var resp swapBuildResponse
	if err := c.postJSON(ctx, "/v1/swap/build", url, req, &resp); err != nil {
		return "", err
	}
	if resp.TxCborHex == "" {
		return "", &Error{Endpoint: "/v1/swap/build", Err: fmt.Errorf("empty transaction returned")}
	}
	return resp.TxCborHex, nil
}

func (c *Client) convertToken(raw apiToken) (TokenInfo, error) {
	if raw.Symbol == "" {
		return TokenInfo{}, fmt.Errorf("empty token symbol")
	}

	if raw.IsNative {
		return TokenInfo{
			Symbol:   raw.Symbol,
			Decimals: chain.AdaDecimals,
			Unit:     chain.LovelaceUnit,
			IsNative: true,
		}, nil
	}

	unit := raw.PolicyID + raw.AssetName
	if _, _, err := chain.ParseUnit(unit); err != nil {
		return TokenInfo{}, fmt.Errorf("invalid unit: %w", err)
	}
	if raw.PoolAddress == "" {
		return TokenInfo{}, fmt.Errorf("missing pool address")
	}

	adaReserve, err := strconv.ParseUint(raw.AdaReserve, 10, 64)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("invalid ada reserve %q: %w", raw.AdaReserve, err)
	}
	tokenReserve, err := strconv.ParseUint(raw.TokenReserve, 10, 64)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("invalid token reserve %q: %w", raw.TokenReserve, err)
	}

	return TokenInfo{
		Symbol:       raw.Symbol,
		Decimals:     raw.Decimals,
		PolicyID:     raw.PolicyID,
		AssetName:    raw.AssetName,
		Unit:         unit,
		AdaReserve:   adaReserve,
		TokenReserve: tokenReserve,
		PoolAddress:  raw.PoolAddress,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, url, nil, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, url string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, url, in, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Endpoint: endpoint, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &Error{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
