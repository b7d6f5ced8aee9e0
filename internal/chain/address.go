// internal/chain/address.go
package chain

import (
	"strings"

	"github.com/mr-tron/base58"
)

// IsShelleyAddress reports whether addr looks like a bech32 Shelley-era
// address (mainnet or testnet prefix).
func IsShelleyAddress(addr string) bool {
	return strings.HasPrefix(addr, "addr1") || strings.HasPrefix(addr, "addr_test1")
}

// IsByronAddress reports whether addr is a legacy Byron-era address.
// Byron addresses are base58 and start with Ae2 or DdzFF.
func IsByronAddress(addr string) bool {
	if !strings.HasPrefix(addr, "Ae2") && !strings.HasPrefix(addr, "DdzFF") {
		return false
	}
	_, err := base58.Decode(addr)
	return err == nil
}

// ShortAddress truncates an address for display, keeping enough of the
// prefix to recognize the era.
func ShortAddress(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-4:]
}
