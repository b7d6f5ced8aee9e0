// internal/chain/chain.go
package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Unit identifies an asset on the ledger: the concatenation of a
// 56-character hex policy id and the hex-encoded asset name. The
// special unit "lovelace" denotes the native base asset.
type Unit = string

const (
	// LovelaceUnit is the unit reported by wallet bridges for ADA.
	LovelaceUnit Unit = "lovelace"

	// AdaSymbol is the display symbol of the native base asset.
	AdaSymbol = "ADA"

	// AdaDecimals is the decimal precision of ADA (1 ADA = 1e6 lovelace).
	AdaDecimals uint8 = 6

	// LovelacePerAda converts whole ADA to lovelace.
	LovelacePerAda uint64 = 1_000_000

	// PolicyIDHexLen is the length of a hex-encoded minting policy id.
	PolicyIDHexLen = 56
)

// Deprecated identifiers retired together with the old swap front-end.
// Discovery results carrying any of these are rejected by diagnostics.
var (
	// DeprecatedPolicyIDs lists minting policies of retired test tokens.
	DeprecatedPolicyIDs = []string{
		"9d1a2b0a9e64d9ba6ef4bb5a36fbf23b4a1dd2e07f54cbb8f3a0e6c1",
	}

	// DeprecatedUnits lists full units of retired assets.
	// TESTC was the seed token of the legacy devnet deployment.
	DeprecatedUnits = []Unit{
		"9d1a2b0a9e64d9ba6ef4bb5a36fbf23b4a1dd2e07f54cbb8f3a0e6c1" + "5445535443",
	}
)

// IsLovelace reports whether the unit denotes the native base asset.
func IsLovelace(u Unit) bool {
	return u == LovelaceUnit
}

// IsDeprecated reports whether the unit, or its policy id, belongs to a
// retired identifier.
func IsDeprecated(u Unit) bool {
	for _, d := range DeprecatedUnits {
		if u == d {
			return true
		}
	}
	for _, p := range DeprecatedPolicyIDs {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// ParseUnit splits a unit into policy id and hex asset name. The
// lovelace unit parses to empty components: it has no minting policy.
func ParseUnit(u Unit) (policyID, assetName string, err error) {
	if IsLovelace(u) {
		return "", "", nil
	}
	if len(u) < PolicyIDHexLen {
		return "", "", fmt.Errorf("unit %q shorter than a policy id", u)
	}
	policyID = u[:PolicyIDHexLen]
	assetName = u[PolicyIDHexLen:]
	if _, err := hex.DecodeString(policyID); err != nil {
		return "", "", fmt.Errorf("unit %q: policy id is not hex: %w", u, err)
	}
	if _, err := hex.DecodeString(assetName); err != nil {
		return "", "", fmt.Errorf("unit %q: asset name is not hex: %w", u, err)
	}
	return policyID, assetName, nil
}

// MakeUnit builds a unit from a policy id and a UTF-8 asset name.
func MakeUnit(policyID, assetName string) Unit {
	return policyID + hex.EncodeToString([]byte(assetName))
}

// DecodeAssetName renders a hex asset name as text when every byte is
// printable, falling back to the hex form otherwise. It never panics
// on malformed input.
func DecodeAssetName(hexName string) string {
	raw, err := hex.DecodeString(hexName)
	if err != nil || len(raw) == 0 {
		return hexName
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return hexName
		}
	}
	return string(raw)
}
