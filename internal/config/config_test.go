package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var validConfigYAML = `
discovery:
  base_url: "https://api.cardex.example"
  min_liquidity_ada: 500
  refresh_ms: 15000
bridge:
  preferred_wallet: "eternl"
  implementation: "legacy"
  legacy:
    base_url: "http://127.0.0.1:8090"
  v2:
    url: "ws://127.0.0.1:8091/session"
swap:
  fee_bps: 30
logging:
  level: "debug"
`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name:    "Valid config",
			content: validConfigYAML,
			wantErr: false,
			check: func(cfg *Config) bool {
				return cfg.Discovery.BaseURL == "https://api.cardex.example" &&
					cfg.Discovery.MinLiquidityAda == 500 &&
					cfg.Discovery.Refresh == 15*time.Second &&
					cfg.Bridge.Implementation == ImplementationLegacy
			},
		},
		{
			name: "Missing discovery URL",
			content: `
bridge:
  legacy:
    base_url: "http://127.0.0.1:8090"
`,
			wantErr: true,
		},
		{
			name:    "Invalid YAML syntax",
			content: "discovery: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(setupTestConfig(t, tt.content))
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tt.check != nil && !tt.check(cfg) {
				t.Error("Load() returned invalid configuration")
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
discovery:
  base_url: "https://api.cardex.example"
bridge:
  legacy:
    base_url: "http://127.0.0.1:8090"
`
	cfg, err := Load(setupTestConfig(t, minimal))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Discovery.Refresh != 30*time.Second {
		t.Errorf("Expected default refresh 30s, got %v", cfg.Discovery.Refresh)
	}
	if cfg.Discovery.MinLiquidityAda != DefaultMinLiquidityAda {
		t.Errorf("Expected default min liquidity %d, got %d", DefaultMinLiquidityAda, cfg.Discovery.MinLiquidityAda)
	}
	if cfg.Bridge.PreferredWallet != "eternl" {
		t.Errorf("Expected default wallet eternl, got %s", cfg.Bridge.PreferredWallet)
	}
	if cfg.Bridge.V2.PingInterval != 30*time.Second {
		t.Errorf("Expected default ping interval 30s, got %v", cfg.Bridge.V2.PingInterval)
	}
	if cfg.Swap.DefaultSlippage != DefaultSlippage {
		t.Errorf("Expected default slippage %q, got %q", DefaultSlippage, cfg.Swap.DefaultSlippage)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Discovery.BaseURL = "https://api.cardex.example"
		cfg.Discovery.RequestTimeoutMS = 10_000
		cfg.Bridge.PreferredWallet = "eternl"
		cfg.Bridge.Implementation = ImplementationLegacy
		cfg.Bridge.Legacy.BaseURL = "http://127.0.0.1:8090"
		return cfg
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError string
	}{
		{
			name:   "Valid configuration",
			mutate: func(cfg *Config) {},
		},
		{
			name:          "Refresh 0 disables polling and is valid",
			mutate:        func(cfg *Config) { cfg.Discovery.RefreshMS = 0 },
			expectedError: "",
		},
		{
			name:          "Negative refresh",
			mutate:        func(cfg *Config) { cfg.Discovery.RefreshMS = -1 },
			expectedError: "invalid discovery refresh interval",
		},
		{
			name:          "Unknown implementation",
			mutate:        func(cfg *Config) { cfg.Bridge.Implementation = "v3" },
			expectedError: `unknown bridge implementation "v3"`,
		},
		{
			name:          "V2 selected without URL",
			mutate:        func(cfg *Config) { cfg.Bridge.Implementation = ImplementationV2 },
			expectedError: "bridge.v2.url is required when implementation is v2",
		},
		{
			name:          "V2 URL with wrong scheme",
			mutate:        func(cfg *Config) { cfg.Bridge.V2.URL = "http://127.0.0.1:8091" },
			expectedError: "invalid v2 bridge URL protocol",
		},
		{
			name:          "Discovery URL with wrong scheme",
			mutate:        func(cfg *Config) { cfg.Discovery.BaseURL = "ftp://files.example" },
			expectedError: "invalid discovery URL protocol",
		},
		{
			name:          "Fee out of range",
			mutate:        func(cfg *Config) { cfg.Swap.FeeBps = 10_000 },
			expectedError: "swap.fee_bps out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.expectedError == "" {
				if err != nil {
					t.Errorf("validateConfig() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Error("Expected error but got nil")
				return
			}
			if err.Error() != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, err.Error())
			}
		})
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	t.Setenv("CARDEX_LICENSE_KEY", "ENV-LICENSE-KEY")
	t.Setenv("CARDEX_WALLET", "lace")

	cfg, err := Load(setupTestConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.License.Key != "ENV-LICENSE-KEY" {
		t.Errorf("Expected license key from env, got %q", cfg.License.Key)
	}
	if cfg.Bridge.PreferredWallet != "lace" {
		t.Errorf("Expected wallet from env, got %q", cfg.Bridge.PreferredWallet)
	}
	// File values untouched by env overrides keep their values.
	if cfg.Discovery.MinLiquidityAda != 500 {
		t.Errorf("Expected min liquidity 500, got %d", cfg.Discovery.MinLiquidityAda)
	}
}
