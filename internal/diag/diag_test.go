// internal/diag/diag_test.go
package diag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

const (
	milkUnit = "1f7a58a1aa1e6b047a42109ade331ce26c9c2cce027d043ff264fb1f" + "4d494c4b"
	wmtUnit  = "593c3cc0f5aa9d27a16b0f41d236bae978f3a1f9d2b09b906c353cc5" + "574d54"
)

// healthyProbe is the reference scenario: ADA plus two pool tokens,
// one of them under the 1000 ADA threshold, a connected wallet and an
// idle shim. Expected outcome: one warning, everything else passes.
func healthyProbe() Probe {
	now := time.Now()
	return Probe{
		Snapshot: discovery.Snapshot{
			Tokens: []discovery.TokenInfo{
				{Symbol: "ADA", Decimals: 6, Unit: chain.LovelaceUnit, IsNative: true},
				{
					Symbol: "MILK", Decimals: 6,
					PolicyID: milkUnit[:56], AssetName: "4d494c4b", Unit: milkUnit,
					AdaReserve: 2_000_000_000, TokenReserve: 1_000_000,
					PoolAddress: "addr1zxqmilk",
				},
				{
					Symbol: "WMT", Decimals: 6,
					PolicyID: wmtUnit[:56], AssetName: "574d54", Unit: wmtUnit,
					AdaReserve: 400_000_000, TokenReserve: 90_000_000,
					PoolAddress: "addr1zxqwmt", LowLiquidity: true,
				},
			},
			FetchedAt: now,
		},
		ThresholdAda: 1000,
		Balance: &portfolio.WalletBalance{
			Lovelace: 5_000_000,
			Ada:      portfolio.LovelaceToAda(5_000_000),
			Assets: []portfolio.AssetBalance{
				{
					Unit: milkUnit, Symbol: "MILK", Decimals: 6,
					Amount: 1_500_000, Display: portfolio.ScaleAmount(1_500_000, 6),
				},
			},
			FetchedAt: now,
		},
		Migration: &migration.State{Active: bridge.ImplLegacy},
	}
}

func findResult(t *testing.T, report Report, name string) Result {
	t.Helper()
	for _, res := range report.Results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result named %q", name)
	return Result{}
}

func TestRunHealthyScenario(t *testing.T) {
	r := NewRunner(nil, zaptest.NewLogger(t))
	report := r.Run(context.Background(), healthyProbe())

	assert.Len(t, report.Results, 7)
	assert.Equal(t, 6, report.Passes)
	assert.Equal(t, 1, report.Warns)
	assert.Equal(t, 0, report.Fails)
	assert.False(t, report.RanAt.IsZero())

	liquidity := findResult(t, report, "liquidity threshold")
	assert.Equal(t, StatusWarn, liquidity.Status)
	assert.Contains(t, liquidity.Detail, "WMT", "the warning names the flagged token")
}

func TestRunAbsentInputs(t *testing.T) {
	r := NewRunner(nil, zaptest.NewLogger(t))
	report := r.Run(context.Background(), Probe{})

	assert.Equal(t, 0, report.Passes)
	assert.Equal(t, 7, report.Warns, "missing inputs warn, never fail")
	assert.Equal(t, 0, report.Fails)
}

func TestRunDetectsDeprecated(t *testing.T) {
	probe := healthyProbe()
	retired := chain.DeprecatedUnits[0]
	probe.Snapshot.Tokens = append(probe.Snapshot.Tokens, discovery.TokenInfo{
		Symbol: "TESTC", Decimals: 0,
		PolicyID: retired[:56], AssetName: retired[56:], Unit: retired,
		AdaReserve: 2_000_000_000, TokenReserve: 1, PoolAddress: "addr1zxqtestc",
	})

	r := NewRunner(nil, zaptest.NewLogger(t))
	report := r.Run(context.Background(), probe)

	res := findResult(t, report, "deprecated identifiers")
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Detail, "TESTC")
	assert.Equal(t, 1, report.Fails)
}

func TestRunNativeViolations(t *testing.T) {
	r := NewRunner(nil, zaptest.NewLogger(t))

	probe := healthyProbe()
	probe.Snapshot.Tokens[0].PoolAddress = "addr1zxqada"
	res := findResult(t, r.Run(context.Background(), probe), "native token")
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Detail, "pool address")

	probe = healthyProbe()
	probe.Snapshot.Tokens = append(probe.Snapshot.Tokens, discovery.TokenInfo{
		Symbol: "ADA", Decimals: 6, Unit: chain.LovelaceUnit, IsNative: true,
	})
	res = findResult(t, r.Run(context.Background(), probe), "native token")
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Detail, "found 2")
}

func TestRunLiquidityFlagMismatch(t *testing.T) {
	probe := healthyProbe()
	// reserves say fine, flag says low
	probe.Snapshot.Tokens[1].LowLiquidity = true

	r := NewRunner(nil, zaptest.NewLogger(t))
	res := findResult(t, r.Run(context.Background(), probe), "liquidity threshold")
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Detail, "MILK")
}

func TestRunScalingMismatch(t *testing.T) {
	probe := healthyProbe()
	probe.Balance.Assets[0].Display = portfolio.ScaleAmount(1_500_000, 4)

	r := NewRunner(nil, zaptest.NewLogger(t))
	res := findResult(t, r.Run(context.Background(), probe), "balance scaling")
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Detail, "MILK")
}

func TestRunMigrationChecks(t *testing.T) {
	r := NewRunner(nil, zaptest.NewLogger(t))

	probe := healthyProbe()
	probe.Migration = &migration.State{Active: bridge.ImplLegacy, Transitioning: true, Progress: 42}
	res := findResult(t, r.Run(context.Background(), probe), "migration state")
	assert.Equal(t, StatusWarn, res.Status, "a switch in flight is a warning, not a failure")

	probe.Migration = &migration.State{Active: bridge.ImplLegacy, Progress: 55}
	res = findResult(t, r.Run(context.Background(), probe), "migration state")
	assert.Equal(t, StatusFail, res.Status)

	probe.Migration = &migration.State{Active: bridge.ImplLegacy, LastError: "probe failed"}
	res = findResult(t, r.Run(context.Background(), probe), "migration state")
	assert.Equal(t, StatusFail, res.Status)

	probe.Migration = &migration.State{Active: bridge.ImplLegacy, LastError: "probe failed", FallbackAvailable: true}
	res = findResult(t, r.Run(context.Background(), probe), "migration state")
	assert.Equal(t, StatusPass, res.Status, "a reverted switch with a usable fallback is healthy")
}

func TestRunPublishesEvent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	}()

	got := make(chan events.Event, 1)
	bus.SubscribeFunc(events.DiagnosticsCompleted, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	r := NewRunner(bus, logger)
	report := r.Run(context.Background(), healthyProbe())

	select {
	case e := <-got:
		completed, ok := e.(*events.DiagnosticsCompletedEvent)
		require.True(t, ok, "unexpected event type %T", e)
		assert.Equal(t, report.Passes, completed.Passes)
		assert.Equal(t, report.Warns, completed.Warnings)
		assert.Equal(t, report.Fails, completed.Failures)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for diagnostics event")
	}
}
