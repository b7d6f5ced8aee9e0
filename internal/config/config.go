// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings loaded from config.yaml.
type Config struct {
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	License   LicenseConfig   `mapstructure:"license"`
}

// DiscoveryConfig controls the token discovery poller.
type DiscoveryConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	MinLiquidityAda  uint64        `mapstructure:"min_liquidity_ada"`
	RefreshMS        int           `mapstructure:"refresh_ms"`
	Refresh          time.Duration `mapstructure:"-"`
	RequestTimeoutMS int           `mapstructure:"request_timeout_ms"`
	RequestTimeout   time.Duration `mapstructure:"-"`
	MaxRetries       int           `mapstructure:"max_retries"`
}

// BridgeConfig selects and configures the wallet bridge implementations.
type BridgeConfig struct {
	PreferredWallet string             `mapstructure:"preferred_wallet"`
	Implementation  string             `mapstructure:"implementation"`
	Legacy          LegacyBridgeConfig `mapstructure:"legacy"`
	V2              V2BridgeConfig     `mapstructure:"v2"`
}

// LegacyBridgeConfig configures the HTTP wallet daemon client.
type LegacyBridgeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	TimeoutMS int           `mapstructure:"timeout_ms"`
	Timeout   time.Duration `mapstructure:"-"`
}

// V2BridgeConfig configures the WebSocket wallet session.
type V2BridgeConfig struct {
	URL                string        `mapstructure:"url"`
	HandshakeTimeoutMS int           `mapstructure:"handshake_timeout_ms"`
	HandshakeTimeout   time.Duration `mapstructure:"-"`
	PingIntervalMS     int           `mapstructure:"ping_interval_ms"`
	PingInterval       time.Duration `mapstructure:"-"`
	ReadTimeoutMS      int           `mapstructure:"read_timeout_ms"`
	ReadTimeout        time.Duration `mapstructure:"-"`
}

// SwapConfig carries quoting parameters.
type SwapConfig struct {
	FeeBps          int    `mapstructure:"fee_bps"`
	DefaultSlippage string `mapstructure:"default_slippage"`
}

// LoggingConfig controls zap level and log file rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// LicenseConfig configures the optional keygen.sh gate. An empty key
// disables validation entirely.
type LicenseConfig struct {
	Key     string `mapstructure:"key"`
	Account string `mapstructure:"account"`
	Product string `mapstructure:"product"`
}

const (
	DefaultRefreshMS       = 30_000
	DefaultRequestTimeout  = 10_000
	DefaultMinLiquidityAda = 1_000
	DefaultMaxRetries      = 3
	DefaultFeeBps          = 30
	DefaultSlippage        = "0.5%"
)

// Implementation names accepted by bridge.implementation.
const (
	ImplementationLegacy = "legacy"
	ImplementationV2     = "v2"
)

// Load reads configuration from the given path, applies defaults and
// environment overrides, converts millisecond fields to durations, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"discovery.refresh_ms":           DefaultRefreshMS,
		"discovery.request_timeout_ms":   DefaultRequestTimeout,
		"discovery.min_liquidity_ada":    DefaultMinLiquidityAda,
		"discovery.max_retries":          DefaultMaxRetries,
		"bridge.preferred_wallet":        "eternl",
		"bridge.implementation":          ImplementationLegacy,
		"bridge.legacy.timeout_ms":       10_000,
		"bridge.v2.handshake_timeout_ms": 10_000,
		"bridge.v2.ping_interval_ms":     30_000,
		"bridge.v2.read_timeout_ms":      60_000,
		"swap.fee_bps":                   DefaultFeeBps,
		"swap.default_slippage":          DefaultSlippage,
		"logging.level":                  "info",
		"logging.max_size_mb":            10,
		"logging.max_backups":            3,
		"logging.max_age_days":           7,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)
	cfg.convertDurations()

	return &cfg, validateConfig(&cfg)
}

// convertDurations materializes *_ms integers into time.Duration fields.
func (c *Config) convertDurations() {
	c.Discovery.Refresh = time.Duration(c.Discovery.RefreshMS) * time.Millisecond
	c.Discovery.RequestTimeout = time.Duration(c.Discovery.RequestTimeoutMS) * time.Millisecond
	c.Bridge.Legacy.Timeout = time.Duration(c.Bridge.Legacy.TimeoutMS) * time.Millisecond
	c.Bridge.V2.HandshakeTimeout = time.Duration(c.Bridge.V2.HandshakeTimeoutMS) * time.Millisecond
	c.Bridge.V2.PingInterval = time.Duration(c.Bridge.V2.PingIntervalMS) * time.Millisecond
	c.Bridge.V2.ReadTimeout = time.Duration(c.Bridge.V2.ReadTimeoutMS) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if cfg.Discovery.BaseURL == "" {
		return errors.New("discovery.base_url is required")
	}
	if err := validateURL(cfg.Discovery.BaseURL, "http"); err != nil {
		return errors.New("invalid discovery URL protocol")
	}
	if cfg.Discovery.RefreshMS < 0 {
		return errors.New("invalid discovery refresh interval")
	}
	if cfg.Discovery.RequestTimeoutMS <= 0 {
		return errors.New("invalid discovery request timeout")
	}
	if cfg.Discovery.MaxRetries < 0 {
		return errors.New("invalid discovery retries count")
	}

	switch cfg.Bridge.Implementation {
	case ImplementationLegacy, ImplementationV2:
	default:
		return fmt.Errorf("unknown bridge implementation %q", cfg.Bridge.Implementation)
	}
	if cfg.Bridge.PreferredWallet == "" {
		return errors.New("bridge.preferred_wallet is required")
	}
	if cfg.Bridge.Legacy.BaseURL == "" {
		return errors.New("bridge.legacy.base_url is required")
	}
	if err := validateURL(cfg.Bridge.Legacy.BaseURL, "http"); err != nil {
		return errors.New("invalid legacy bridge URL protocol")
	}
	if cfg.Bridge.V2.URL != "" {
		if err := validateURL(cfg.Bridge.V2.URL, "ws"); err != nil {
			return errors.New("invalid v2 bridge URL protocol")
		}
	} else if cfg.Bridge.Implementation == ImplementationV2 {
		return errors.New("bridge.v2.url is required when implementation is v2")
	}

	if cfg.Swap.FeeBps < 0 || cfg.Swap.FeeBps >= 10_000 {
		return errors.New("swap.fee_bps out of range")
	}
	return nil
}

// validateURL checks that the URL parses and its scheme starts with the
// given protocol, so "https" satisfies "http" and "wss" satisfies "ws".
func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// loadEnvironmentVariables lets CARDEX_* variables override the most
// deployment-sensitive settings.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("CARDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if key := v.GetString("LICENSE_KEY"); key != "" {
		cfg.License.Key = key
	}
	if base := v.GetString("DISCOVERY_URL"); base != "" {
		cfg.Discovery.BaseURL = base
	}
	if wallet := v.GetString("WALLET"); wallet != "" {
		cfg.Bridge.PreferredWallet = wallet
	}
}
