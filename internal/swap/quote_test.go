// internal/swap/quote_test.go
package swap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardexlabs/cardex/internal/discovery"
)

const milkUnit = "1f7a58a1aa1e6b047a42109ade331ce26c9c2cce027d043ff264fb1f" + "4d494c4b"

func testPool() discovery.TokenInfo {
	return discovery.TokenInfo{
		Symbol:       "MILK",
		Decimals:     0,
		Unit:         milkUnit,
		AdaReserve:   400,
		TokenReserve: 1000,
		PoolAddress:  "addr1zxqmilk",
	}
}

func TestEstimateAdaToToken(t *testing.T) {
	pool := testPool()
	slippage, err := ParseSlippage("0.5%")
	require.NoError(t, err)

	// x=400, y=1000, in=100 lovelace, no fee:
	// out = 1000*100/(400+100) = 200
	q, err := Estimate(pool, decimal.RequireFromString("0.0001"), AdaToToken, 0, slippage)
	require.NoError(t, err)

	assert.Equal(t, "0.0001", q.AmountIn.String())
	assert.Equal(t, "200", q.AmountOut.String())
	assert.Equal(t, "199", q.MinReceived.String(), "0.5% tolerance floored to the raw grid")
	assert.Equal(t, "20", q.PriceImpact.String(), "100 of a 500 post-trade reserve is 20%")
	assert.Equal(t, uint64(100), q.RawIn)
	assert.Equal(t, uint64(199), q.RawMinOut)
	assert.Equal(t, "lovelace", q.InUnit)
	assert.Equal(t, milkUnit, q.OutUnit)
	assert.Equal(t, "ADA/MILK", q.Pair)
	assert.Equal(t, "addr1zxqmilk", q.PoolAddress)
}

func TestEstimateFeeOnInput(t *testing.T) {
	pool := testPool()

	// 30 bps: eff = 100*0.997 = 99.7
	// out = 1000*99.7/(400+99.7) = 199.519... -> 199
	q, err := Estimate(pool, decimal.RequireFromString("0.0001"), AdaToToken, 30, Slippage{})
	require.NoError(t, err)

	assert.Equal(t, "199", q.AmountOut.String())
	assert.Equal(t, 30, q.FeeBps)
	assert.True(t, q.PriceImpact.LessThan(decimal.NewFromInt(20)),
		"fee shrinks the effective input, so impact drops under the no-fee 20%")
}

func TestEstimateTokenToAda(t *testing.T) {
	pool := testPool()

	// x=1000 tokens, y=400 lovelace, in=200 tokens, no fee:
	// out = 400*200/1200 = 66.66 -> 66
	q, err := Estimate(pool, decimal.NewFromInt(200), TokenToAda, 0, Slippage{})
	require.NoError(t, err)

	assert.Equal(t, "200", q.AmountIn.String())
	assert.Equal(t, "0.000066", q.AmountOut.String())
	assert.Equal(t, "MILK/ADA", q.Pair)
	assert.Equal(t, milkUnit, q.InUnit)
	assert.Equal(t, "lovelace", q.OutUnit)
	assert.Equal(t, uint64(200), q.RawIn)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	slip := Slippage{}

	empty := testPool()
	empty.AdaReserve = 0
	_, err := Estimate(empty, decimal.NewFromInt(1), AdaToToken, 0, slip)
	assert.ErrorContains(t, err, "no liquidity")

	native := discovery.TokenInfo{Symbol: "ADA", IsNative: true}
	_, err = Estimate(native, decimal.NewFromInt(1), AdaToToken, 0, slip)
	assert.ErrorContains(t, err, "native")

	_, err = Estimate(testPool(), decimal.Zero, AdaToToken, 0, slip)
	assert.ErrorContains(t, err, "positive")

	// 1 ADA = 1_000_000 lovelace against a 400 lovelace reserve
	_, err = Estimate(testPool(), decimal.NewFromInt(1), AdaToToken, 0, slip)
	assert.ErrorContains(t, err, "exceeds the pool reserve")

	_, err = Estimate(testPool(), decimal.RequireFromString("0.0001"), AdaToToken, 10_000, slip)
	assert.ErrorContains(t, err, "out of range")

	_, err = Estimate(testPool(), decimal.RequireFromString("0.0000001"), AdaToToken, 0, slip)
	assert.ErrorContains(t, err, "smallest asset unit")
}

func TestParseSlippage(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0.5%", want: "0.5"},
		{in: "1", want: "1"},
		{in: " 2.5 % ", want: "2.5"},
		{in: "0", want: "0"},
		{in: "100", want: "100"},
		{in: "101", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseSlippage(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got.Percent.String(), "input %q", tc.in)
	}
}

func TestSlippageMultiplier(t *testing.T) {
	s, err := ParseSlippage("0.5%")
	require.NoError(t, err)
	assert.Equal(t, "0.995", s.Multiplier().String())
	assert.Equal(t, "0.5%", s.String())

	assert.Equal(t, "1", Slippage{}.Multiplier().String(), "zero slippage accepts only the full quote")
}
