// internal/portfolio/metadata.go
package portfolio

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/discovery"
)

const (
	metadataTTL        = 5 * time.Minute
	metadataCacheSize  = 512
	maxParallelLookups = 8
)

// Metadata is a resolved display description of one asset unit.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals uint8
	Source   string // "native", "snapshot", "registry", "known", "decoded"
}

// TokenSource yields token descriptions already known to discovery.
type TokenSource interface {
	Find(unit string) (discovery.TokenInfo, bool)
}

// RegistryClient resolves metadata from the token registry.
type RegistryClient interface {
	FetchMetadata(ctx context.Context, unit string) (*discovery.AssetMetadata, error)
}

// Resolver resolves asset metadata with caching. Sources are tried in
// order: discovery snapshot, token registry, known-asset table, and
// finally the decoded asset name.
type Resolver struct {
	tokens   TokenSource
	registry RegistryClient
	cache    *expirable.LRU[string, Metadata]
	logger   *zap.Logger
}

// knownAssets covers assets the registry has historically served
// inconsistently.
var knownAssets = map[string]Metadata{
	// MILK
	"8a1cfae21368b8bebbbed9800fec304e95cce39a2a57dc35e2e3ebaa" + "4d494c4b": {
		Symbol: "MILK", Name: "MuesliSwap MILK", Decimals: 0,
	},
	// WMT
	"1d7f33bd23d85e1a25d87d86fac4f199c3197a2f7afeb662a0f34e1e" + "776f726c646d6f62696c65746f6b656e": {
		Symbol: "WMT", Name: "World Mobile Token", Decimals: 6,
	},
	// HOSKY
	"a0028f350aaabe0545fdcb56b039bfb08e4bb4d8c4d7c3c7d481c235" + "484f534b59": {
		Symbol: "HOSKY", Name: "Hosky Token", Decimals: 0,
	},
}

// NewResolver creates a metadata resolver. Both sources may be nil;
// resolution then degrades to the known-asset table and decoded names.
func NewResolver(tokens TokenSource, registry RegistryClient, logger *zap.Logger) *Resolver {
	return &Resolver{
		tokens:   tokens,
		registry: registry,
		cache:    expirable.NewLRU[string, Metadata](metadataCacheSize, nil, metadataTTL),
		logger:   logger.Named("metadata"),
	}
}

// Resolve returns a display description for the unit. It never fails:
// unknown units fall back to the decoded asset name with zero
// decimals.
func (r *Resolver) Resolve(ctx context.Context, unit string) Metadata {
	if chain.IsLovelace(unit) {
		return Metadata{Symbol: chain.AdaSymbol, Name: "Cardano", Decimals: chain.AdaDecimals, Source: "native"}
	}

	if meta, ok := r.cache.Get(unit); ok {
		return meta
	}

	meta, ok := r.fromSnapshot(unit)
	if !ok {
		meta, ok = r.fromRegistry(ctx, unit)
	}
	if !ok {
		meta, ok = r.fromKnown(unit)
	}
	if !ok {
		meta = r.fromUnit(unit)
	}

	r.cache.Add(unit, meta)

	r.logger.Debug("asset metadata resolved",
		zap.String("unit", unit),
		zap.String("symbol", meta.Symbol),
		zap.String("source", meta.Source))

	return meta
}

// ResolveAll resolves every unit, fetching cache misses in parallel.
// A failed lookup degrades that entry only.
func (r *Resolver) ResolveAll(ctx context.Context, units []string) map[string]Metadata {
	results := make([]Metadata, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, unit := range units {
		g.Go(func() error {
			results[i] = r.Resolve(ctx, unit)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Metadata, len(units))
	for i, unit := range units {
		out[unit] = results[i]
	}
	return out
}

func (r *Resolver) fromSnapshot(unit string) (Metadata, bool) {
	if r.tokens == nil {
		return Metadata{}, false
	}
	info, ok := r.tokens.Find(unit)
	if !ok {
		return Metadata{}, false
	}
	return Metadata{Symbol: info.Symbol, Name: info.Symbol, Decimals: info.Decimals, Source: "snapshot"}, true
}

func (r *Resolver) fromRegistry(ctx context.Context, unit string) (Metadata, bool) {
	if r.registry == nil {
		return Metadata{}, false
	}
	meta, err := r.registry.FetchMetadata(ctx, unit)
	if err != nil {
		r.logger.Debug("registry lookup failed",
			zap.String("unit", unit),
			zap.Error(err))
		return Metadata{}, false
	}
	return Metadata{Symbol: meta.Symbol, Name: meta.Name, Decimals: meta.Decimals, Source: "registry"}, true
}

func (r *Resolver) fromKnown(unit string) (Metadata, bool) {
	meta, ok := knownAssets[unit]
	if !ok {
		return Metadata{}, false
	}
	meta.Source = "known"
	return meta, true
}

func (r *Resolver) fromUnit(unit string) Metadata {
	_, assetName, err := chain.ParseUnit(unit)
	if err != nil {
		return Metadata{Symbol: unit, Name: unit, Source: "decoded"}
	}
	decoded := chain.DecodeAssetName(assetName)
	return Metadata{Symbol: decoded, Name: decoded, Source: "decoded"}
}
