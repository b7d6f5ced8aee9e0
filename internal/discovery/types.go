// internal/discovery/types.go
package discovery

import (
	"fmt"
	"time"
)

// TokenInfo describes one tradable token from the discovery API.
// Values are immutable once fetched; a refresh replaces the whole
// list.
type TokenInfo struct {
	Symbol       string
	Decimals     uint8
	PolicyID     string
	AssetName    string
	Unit         string
	IsNative     bool
	AdaReserve   uint64
	TokenReserve uint64
	PoolAddress  string
	LowLiquidity bool
}

// Snapshot is the result of one discovery refresh. After a failed
// refresh Tokens is empty and Err carries the reason; the client keeps
// running either way.
type Snapshot struct {
	Tokens    []TokenInfo
	FetchedAt time.Time
	Err       string
}

// AssetMetadata is the registry entry for one asset unit.
type AssetMetadata struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// Error describes a failed discovery API call.
type Error struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("discovery %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("discovery %s: %v", e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
