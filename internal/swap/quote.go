// internal/swap/quote.go
package swap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/discovery"
)

// Direction tells which side of the pool the input is on.
type Direction int

const (
	// AdaToToken spends ADA for the pool's token.
	AdaToToken Direction = iota
	// TokenToAda sells the pool's token back to ADA.
	TokenToAda
)

// Quote is an estimated swap. Display amounts are decimal-scaled;
// RawIn and RawMinOut are the integer quantities that go on the wire.
type Quote struct {
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	MinReceived decimal.Decimal
	PriceImpact decimal.Decimal
	FeeBps      int

	Pair        string
	InUnit      string
	OutUnit     string
	PoolAddress string
	RawIn       uint64
	RawMinOut   uint64
}

// Estimate quotes a swap against the pool's reserves: constant product
// x*y=k with the fee taken on the input side.
func Estimate(pool discovery.TokenInfo, amountIn decimal.Decimal, dir Direction, feeBps int, slippage Slippage) (Quote, error) {
	if pool.IsNative {
		return Quote{}, errors.New("native ADA is not a pool token")
	}
	if pool.AdaReserve == 0 || pool.TokenReserve == 0 {
		return Quote{}, fmt.Errorf("pool %s has no liquidity", pool.Symbol)
	}
	if feeBps < 0 || feeBps >= 10_000 {
		return Quote{}, fmt.Errorf("fee %d bps out of range", feeBps)
	}
	if amountIn.Sign() <= 0 {
		return Quote{}, errors.New("amount must be positive")
	}

	var (
		inReserve, outReserve   uint64
		inDecimals, outDecimals uint8
		inUnit, outUnit, pair   string
	)
	switch dir {
	case AdaToToken:
		inReserve, outReserve = pool.AdaReserve, pool.TokenReserve
		inDecimals, outDecimals = chain.AdaDecimals, pool.Decimals
		inUnit, outUnit = chain.LovelaceUnit, pool.Unit
		pair = chain.AdaSymbol + "/" + pool.Symbol
	case TokenToAda:
		inReserve, outReserve = pool.TokenReserve, pool.AdaReserve
		inDecimals, outDecimals = pool.Decimals, chain.AdaDecimals
		inUnit, outUnit = pool.Unit, chain.LovelaceUnit
		pair = pool.Symbol + "/" + chain.AdaSymbol
	default:
		return Quote{}, fmt.Errorf("unknown swap direction %d", dir)
	}

	rawIn := amountIn.Shift(int32(inDecimals)).Floor()
	if rawIn.IsZero() {
		return Quote{}, errors.New("amount below the smallest asset unit")
	}
	rawInU, err := toUint64(rawIn)
	if err != nil {
		return Quote{}, fmt.Errorf("amount too large: %w", err)
	}

	x := fromUint64(inReserve)
	y := fromUint64(outReserve)
	if rawIn.GreaterThan(x) {
		return Quote{}, fmt.Errorf("amount exceeds the pool reserve (%s available)", x.Shift(-int32(inDecimals)))
	}

	feeMul := decimal.NewFromInt(10_000 - int64(feeBps)).Div(decimal.NewFromInt(10_000))
	effIn := rawIn.Mul(feeMul)
	denom := x.Add(effIn)

	rawOut := y.Mul(effIn).Div(denom).Floor()
	if rawOut.IsZero() {
		return Quote{}, errors.New("amount too small to produce any output")
	}
	rawMinOut := rawOut.Mul(slippage.Multiplier()).Floor()

	rawMinOutU, err := toUint64(rawMinOut)
	if err != nil {
		return Quote{}, fmt.Errorf("min output out of range: %w", err)
	}

	impact := effIn.Div(denom).Mul(oneHundred)

	return Quote{
		AmountIn:    rawIn.Shift(-int32(inDecimals)),
		AmountOut:   rawOut.Shift(-int32(outDecimals)),
		MinReceived: rawMinOut.Shift(-int32(outDecimals)),
		PriceImpact: impact,
		FeeBps:      feeBps,
		Pair:        pair,
		InUnit:      inUnit,
		OutUnit:     outUnit,
		PoolAddress: pool.PoolAddress,
		RawIn:       rawInU,
		RawMinOut:   rawMinOutU,
	}, nil
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toUint64(d decimal.Decimal) (uint64, error) {
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%s does not fit in uint64", d)
	}
	return bi.Uint64(), nil
}
