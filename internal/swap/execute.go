// internal/swap/execute.go
package swap

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/bridge"
	"github.com/cardexlabs/cardex/internal/events"
)

// TxBuilder asks the backend to assemble an unsigned swap transaction.
type TxBuilder interface {
	BuildSwapTx(ctx context.Context, wallet, poolAddr, inUnit, outUnit, inQuantity, minOut string) (string, error)
}

// Executor submits quoted swaps through a wallet session.
type Executor struct {
	builder TxBuilder
	logger  *zap.Logger
	bus     *events.Bus
}

// NewExecutor creates a swap executor. Bus may be nil.
func NewExecutor(builder TxBuilder, bus *events.Bus, logger *zap.Logger) *Executor {
	return &Executor{
		builder: builder,
		logger:  logger.Named("swap"),
		bus:     bus,
	}
}

// Execute builds, signs and submits the quoted swap and returns the
// transaction hash. Each step runs exactly once: a submitted swap must
// never be retried blindly.
func (e *Executor) Execute(ctx context.Context, session bridge.Session, q Quote) (string, error) {
	wallet := session.Wallet()

	unsigned, err := e.builder.BuildSwapTx(ctx, wallet, q.PoolAddress, q.InUnit, q.OutUnit,
		strconv.FormatUint(q.RawIn, 10), strconv.FormatUint(q.RawMinOut, 10))
	if err != nil {
		return "", fmt.Errorf("build swap: %w", err)
	}

	signed, err := session.SignTx(ctx, unsigned, false)
	if err != nil {
		return "", fmt.Errorf("sign swap: %w", err)
	}

	hash, err := session.SubmitTx(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("submit swap: %w", err)
	}

	e.logger.Info("swap submitted",
		zap.String("wallet", wallet),
		zap.String("pair", q.Pair),
		zap.String("tx_hash", hash))

	if e.bus != nil {
		_ = e.bus.Publish(&events.SwapSubmittedEvent{
			BaseEvent: events.NewBase(events.SwapSubmitted),
			Wallet:    wallet,
			Pair:      q.Pair,
			TxHash:    hash,
		})
	}

	return hash, nil
}
