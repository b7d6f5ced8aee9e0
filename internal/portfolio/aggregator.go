// internal/portfolio/aggregator.go
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/metrics"
)

// AssetBalance is one native asset held by the wallet.
type AssetBalance struct {
	Unit      string
	PolicyID  string
	AssetName string
	Symbol    string
	Name      string
	Decimals  uint8
	Amount    uint64
	Display   decimal.Decimal
}

// WalletBalance is a complete wallet snapshot. It is constructed fresh
// on every query and never partially mutated; ADA is always present
// even when zero.
type WalletBalance struct {
	Lovelace  uint64
	Ada       decimal.Decimal
	Assets    []AssetBalance
	FetchedAt time.Time
}

// Aggregator turns raw bridge balances into display-ready wallet
// balances.
type Aggregator struct {
	resolver  *Resolver
	logger    *zap.Logger
	bus       *events.Bus
	collector *metrics.Collector
}

// NewAggregator creates an aggregator. Bus and collector may be nil.
func NewAggregator(resolver *Resolver, bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		resolver:  resolver,
		logger:    logger.Named("portfolio"),
		bus:       bus,
		collector: collector,
	}
}

// Fetch reads the session's balance and maps every non-ADA unit to a
// decoded, decimal-scaled entry. Bridge enumeration order is
// preserved. A bridge failure surfaces as one error; there is no
// retry.
func (a *Aggregator) Fetch(ctx context.Context, session bridge.Session) (*WalletBalance, error) {
	raw, err := session.Balance(ctx)
	if err != nil {
		if a.collector != nil {
			a.collector.RecordBalanceRefresh(err)
		}
		return nil, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	units := make([]string, 0, len(raw.Assets))
	for _, asset := range raw.Assets {
		if chain.IsLovelace(asset.Unit) {
			continue
		}
		units = append(units, asset.Unit)
	}
	meta := a.resolver.ResolveAll(ctx, units)

	assets := make([]AssetBalance, 0, len(units))
	for _, asset := range raw.Assets {
		if chain.IsLovelace(asset.Unit) {
			// some bridges repeat the base asset in the list
			continue
		}
		entry, err := a.convertAsset(asset, meta[asset.Unit])
		if err != nil {
			a.logger.Warn("skipping asset",
				zap.String("unit", asset.Unit),
				zap.Error(err))
			continue
		}
		assets = append(assets, entry)
	}

	balance := &WalletBalance{
		Lovelace:  raw.Lovelace,
		Ada:       LovelaceToAda(raw.Lovelace),
		Assets:    assets,
		FetchedAt: time.Now(),
	}

	if a.collector != nil {
		a.collector.RecordBalanceRefresh(nil)
	}
	if a.bus != nil {
		_ = a.bus.Publish(&events.BalanceRefreshedEvent{
			BaseEvent:  events.NewBase(events.BalanceRefreshed),
			Wallet:     session.Wallet(),
			Lovelace:   raw.Lovelace,
			AssetCount: len(assets),
		})
	}

	a.logger.Debug("wallet balance aggregated",
		zap.String("wallet", session.Wallet()),
		zap.Uint64("lovelace", raw.Lovelace),
		zap.Int("assets", len(assets)))

	return balance, nil
}

func (a *Aggregator) convertAsset(raw bridge.RawAsset, meta Metadata) (AssetBalance, error) {
	amount, err := a.parseQuantity(raw.Unit, raw.Quantity)
	if err != nil {
		return AssetBalance{}, err
	}

	policyID, assetName, err := chain.ParseUnit(raw.Unit)
	if err != nil {
		return AssetBalance{}, err
	}

	return AssetBalance{
		Unit:      raw.Unit,
		PolicyID:  policyID,
		AssetName: assetName,
		Symbol:    meta.Symbol,
		Name:      meta.Name,
		Decimals:  meta.Decimals,
		Amount:    amount,
		Display:   ScaleAmount(amount, meta.Decimals),
	}, nil
}

// parseQuantity parses a raw quantity string. Values past uint64 are
// clamped rather than dropped: a huge balance is still a balance.
func (a *Aggregator) parseQuantity(unit, quantity string) (uint64, error) {
	n, err := strconv.ParseUint(quantity, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			a.logger.Warn("asset quantity exceeds uint64, clamping",
				zap.String("unit", unit),
				zap.String("quantity", quantity))
			return math.MaxUint64, nil
		}
		return 0, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	return n, nil
}

// ScaleAmount converts a raw integer amount to its display value,
// exactly: ScaleAmount(raw, d) * 10^d == raw.
func ScaleAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// LovelaceToAda converts lovelace to whole ADA.
func LovelaceToAda(lovelace uint64) decimal.Decimal {
	return ScaleAmount(lovelace, chain.AdaDecimals)
}
