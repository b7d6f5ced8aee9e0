// internal/diag/diag.go
package diag

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/chain"
	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/migration"
	"github.com/cardexlabs/cardex/internal/portfolio"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result is one named assertion over the probe.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report is the outcome of a full battery run.
type Report struct {
	Results []Result
	Passes  int
	Warns   int
	Fails   int
	RanAt   time.Time
}

// Probe is the state the battery inspects. Balance and Migration are
// nil when no wallet is connected or no shim is running; the affected
// checks then warn instead of failing.
type Probe struct {
	Snapshot     discovery.Snapshot
	ThresholdAda uint64
	Balance      *portfolio.WalletBalance
	Migration    *migration.State
}

// Runner executes the diagnostic battery. It has no side effects
// beyond logging and the completion event.
type Runner struct {
	logger *zap.Logger
	bus    *events.Bus
}

// NewRunner creates a battery runner. Bus may be nil.
func NewRunner(bus *events.Bus, logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger.Named("diag"),
		bus:    bus,
	}
}

// Run executes every check against the probe.
func (r *Runner) Run(_ context.Context, probe Probe) Report {
	checks := []func(Probe) Result{
		r.checkTokenList,
		r.checkNativeToken,
		r.checkDeprecated,
		r.checkLiquidity,
		r.checkMetadata,
		r.checkBalanceScaling,
		r.checkMigration,
	}

	report := Report{
		RanAt:   time.Now(),
		Results: make([]Result, 0, len(checks)),
	}
	for _, check := range checks {
		res := check(probe)
		report.Results = append(report.Results, res)
		switch res.Status {
		case StatusPass:
			report.Passes++
		case StatusWarn:
			report.Warns++
		case StatusFail:
			report.Fails++
		}
		r.logResult(res)
	}

	r.logger.Info("diagnostics completed",
		zap.Int("passes", report.Passes),
		zap.Int("warnings", report.Warns),
		zap.Int("failures", report.Fails))

	if r.bus != nil {
		_ = r.bus.Publish(&events.DiagnosticsCompletedEvent{
			BaseEvent: events.NewBase(events.DiagnosticsCompleted),
			Passes:    report.Passes,
			Warnings:  report.Warns,
			Failures:  report.Fails,
		})
	}

	return report
}

func (r *Runner) logResult(res Result) {
	switch res.Status {
	case StatusFail:
		r.logger.Error("check failed",
			zap.String("check", res.Name),
			zap.String("detail", res.Detail))
	case StatusWarn:
		r.logger.Warn("check warned",
			zap.String("check", res.Name),
			zap.String("detail", res.Detail))
	default:
		r.logger.Debug("check passed",
			zap.String("check", res.Name),
			zap.String("detail", res.Detail))
	}
}

func warnNoSnapshot(name string) Result {
	return Result{Name: name, Status: StatusWarn, Detail: "no token snapshot yet"}
}

func (r *Runner) checkTokenList(p Probe) Result {
	const name = "token list"
	if p.Snapshot.FetchedAt.IsZero() {
		return warnNoSnapshot(name)
	}
	if p.Snapshot.Err != "" {
		return Result{Name: name, Status: StatusFail, Detail: "last refresh failed: " + p.Snapshot.Err}
	}
	if len(p.Snapshot.Tokens) == 0 {
		return Result{Name: name, Status: StatusFail, Detail: "token list is empty"}
	}
	return Result{Name: name, Status: StatusPass, Detail: fmt.Sprintf("%d tokens", len(p.Snapshot.Tokens))}
}

func (r *Runner) checkNativeToken(p Probe) Result {
	const name = "native token"
	if p.Snapshot.FetchedAt.IsZero() {
		return warnNoSnapshot(name)
	}

	native := 0
	for _, tok := range p.Snapshot.Tokens {
		if !tok.IsNative {
			continue
		}
		native++
		if tok.PoolAddress != "" {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("native %s carries pool address %s", tok.Symbol, tok.PoolAddress)}
		}
		if !chain.IsLovelace(tok.Unit) {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("native entry has unit %q", tok.Unit)}
		}
	}
	if native != 1 {
		return Result{Name: name, Status: StatusFail,
			Detail: fmt.Sprintf("expected exactly one native entry, found %d", native)}
	}
	return Result{Name: name, Status: StatusPass, Detail: "ADA present once and not a pool token"}
}

func (r *Runner) checkDeprecated(p Probe) Result {
	const name = "deprecated identifiers"
	if p.Snapshot.FetchedAt.IsZero() {
		return warnNoSnapshot(name)
	}

	var hits []string
	for _, tok := range p.Snapshot.Tokens {
		if chain.IsDeprecated(tok.Unit) {
			hits = append(hits, tok.Symbol)
		}
	}
	if len(hits) > 0 {
		return Result{Name: name, Status: StatusFail,
			Detail: "retired identifiers present: " + strings.Join(hits, ", ")}
	}
	return Result{Name: name, Status: StatusPass, Detail: "no retired identifiers"}
}

func (r *Runner) checkLiquidity(p Probe) Result {
	const name = "liquidity threshold"
	if p.Snapshot.FetchedAt.IsZero() {
		return warnNoSnapshot(name)
	}

	threshold := p.ThresholdAda * chain.LovelacePerAda
	var flagged []string
	for _, tok := range p.Snapshot.Tokens {
		if tok.IsNative {
			continue
		}
		wantFlag := p.ThresholdAda > 0 && tok.AdaReserve < threshold
		if wantFlag != tok.LowLiquidity {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("%s: low-liquidity flag is %v, reserves say %v", tok.Symbol, tok.LowLiquidity, wantFlag)}
		}
		if tok.LowLiquidity {
			flagged = append(flagged, tok.Symbol)
		}
	}
	if len(flagged) > 0 {
		return Result{Name: name, Status: StatusWarn,
			Detail: "below threshold: " + strings.Join(flagged, ", ")}
	}
	return Result{Name: name, Status: StatusPass, Detail: "all pools above threshold"}
}

func (r *Runner) checkMetadata(p Probe) Result {
	const name = "token metadata"
	if p.Snapshot.FetchedAt.IsZero() {
		return warnNoSnapshot(name)
	}

	for _, tok := range p.Snapshot.Tokens {
		if tok.Symbol == "" {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("token %s has no symbol", tok.Unit)}
		}
		if tok.Decimals > 12 {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("%s: implausible decimals %d", tok.Symbol, tok.Decimals)}
		}
		if tok.IsNative {
			continue
		}
		if len(tok.PolicyID) != chain.PolicyIDHexLen {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("%s: policy id length %d", tok.Symbol, len(tok.PolicyID))}
		}
	}
	return Result{Name: name, Status: StatusPass, Detail: "symbols, decimals and policy ids look sane"}
}

func (r *Runner) checkBalanceScaling(p Probe) Result {
	const name = "balance scaling"
	if p.Balance == nil {
		return Result{Name: name, Status: StatusWarn, Detail: "no wallet connected"}
	}

	if !p.Balance.Ada.Shift(int32(chain.AdaDecimals)).Equal(fromUint64(p.Balance.Lovelace)) {
		return Result{Name: name, Status: StatusFail,
			Detail: fmt.Sprintf("ADA display %s does not scale to %d lovelace", p.Balance.Ada, p.Balance.Lovelace)}
	}
	for _, asset := range p.Balance.Assets {
		if !asset.Display.Shift(int32(asset.Decimals)).Equal(fromUint64(asset.Amount)) {
			return Result{Name: name, Status: StatusFail,
				Detail: fmt.Sprintf("%s: display %s does not scale to raw %d", asset.Symbol, asset.Display, asset.Amount)}
		}
	}
	return Result{Name: name, Status: StatusPass,
		Detail: fmt.Sprintf("%d assets scale exactly", len(p.Balance.Assets))}
}

func (r *Runner) checkMigration(p Probe) Result {
	const name = "migration state"
	if p.Migration == nil {
		return Result{Name: name, Status: StatusWarn, Detail: "no migration state supplied"}
	}

	s := p.Migration
	if s.Progress < 0 || s.Progress > 100 {
		return Result{Name: name, Status: StatusFail,
			Detail: fmt.Sprintf("progress %d outside 0-100", s.Progress)}
	}
	if !s.Transitioning && s.Progress != 0 && s.Progress != 100 {
		return Result{Name: name, Status: StatusFail,
			Detail: fmt.Sprintf("idle state carries partial progress %d", s.Progress)}
	}
	if s.LastError != "" && !s.FallbackAvailable {
		return Result{Name: name, Status: StatusFail,
			Detail: "switch failed without a usable fallback: " + s.LastError}
	}
	if s.Transitioning {
		return Result{Name: name, Status: StatusWarn,
			Detail: fmt.Sprintf("switch in flight at %d%%", s.Progress)}
	}
	return Result{Name: name, Status: StatusPass,
		Detail: fmt.Sprintf("idle on %s", s.Active)}
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
