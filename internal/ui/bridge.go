package ui

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardexlabs/cardex/internal/discovery"
	"github.com/cardexlabs/cardex/internal/events"
	"github.com/cardexlabs/cardex/internal/ui/state"
)

// EventBridge forwards domain bus events onto the UI message bus and
// keeps the UI cache current, so screens stay fresh without polling
// the services themselves. Migration progress is not bridged here: the
// bus does not order events across types, and a gauge jumping backwards
// is worse than none, so the shim delivers state snapshots through its
// synchronous progress callback instead.
type EventBridge struct {
	logger *zap.Logger
	sender *UpdateSender
	subs   []events.Subscription
}

// BridgeEvents subscribes to every event the screens care about and
// forwards through a non-blocking sender. Close removes the
// subscriptions.
func BridgeEvents(bus *events.Bus, tokens *discovery.Service, cache *state.UICache, logger *zap.Logger) *EventBridge {
	log := logger.Named("ui_bridge")
	b := &EventBridge{
		logger: log,
		sender: NewUpdateSender(Bus, log),
	}

	b.sub(bus, events.TokenListUpdated, func(_ context.Context, _ events.Event) error {
		snap := tokens.Snapshot()
		cache.SetTokens(snap)
		b.sender.SendUpdate(TokenListMsg{Snapshot: snap})
		return nil
	})

	b.sub(bus, events.BalanceRefreshed, func(_ context.Context, ev events.Event) error {
		refreshed, ok := ev.(*events.BalanceRefreshedEvent)
		if !ok {
			return nil
		}
		b.sender.SendUpdate(StatusMsg{Message: fmt.Sprintf("balance refreshed: %s (%d assets)",
			refreshed.Wallet, refreshed.AssetCount)})
		return nil
	})

	b.sub(bus, events.MigrationCompleted, func(_ context.Context, ev events.Event) error {
		done, ok := ev.(*events.MigrationCompletedEvent)
		if !ok {
			return nil
		}
		b.sender.SendUpdate(SuccessMsg{
			Message: fmt.Sprintf("now on the %s implementation", done.To),
			Title:   "Migration complete",
		})
		return nil
	})

	b.sub(bus, events.MigrationFailed, func(_ context.Context, ev events.Event) error {
		failed, ok := ev.(*events.MigrationFailedEvent)
		if !ok {
			return nil
		}
		err := failed.Err
		if failed.FellBack {
			err = fmt.Errorf("%w (still on %s)", failed.Err, failed.From)
		}
		b.sender.SendUpdate(ErrorMsg{Error: err, Title: "Migration failed"})
		return nil
	})

	b.sub(bus, events.SessionOpened, func(_ context.Context, ev events.Event) error {
		opened, ok := ev.(*events.SessionOpenedEvent)
		if !ok {
			return nil
		}
		cache.SetConnection(opened.Wallet, opened.Impl, true)
		b.sender.SendUpdate(SessionMsg{Wallet: opened.Wallet, Impl: opened.Impl, Connected: true})
		return nil
	})

	b.sub(bus, events.SessionClosed, func(_ context.Context, ev events.Event) error {
		closed, ok := ev.(*events.SessionClosedEvent)
		if !ok {
			return nil
		}
		conn := cache.Connection()
		cache.SetConnection(closed.Wallet, conn.Impl, false)
		b.sender.SendUpdate(SessionMsg{
			Wallet: closed.Wallet, Impl: conn.Impl, Connected: false, Reason: closed.Reason,
		})
		return nil
	})

	b.sub(bus, events.SwapSubmitted, func(_ context.Context, ev events.Event) error {
		swap, ok := ev.(*events.SwapSubmittedEvent)
		if !ok {
			return nil
		}
		b.sender.SendUpdate(SwapMsg{Wallet: swap.Wallet, Pair: swap.Pair, TxHash: swap.TxHash})
		b.sender.SendUpdate(SuccessMsg{
			Message: fmt.Sprintf("%s swap submitted: %s", swap.Pair, swap.TxHash),
			Title:   "Swap",
		})
		return nil
	})

	b.sub(bus, events.DiagnosticsCompleted, func(_ context.Context, ev events.Event) error {
		report, ok := ev.(*events.DiagnosticsCompletedEvent)
		if !ok {
			return nil
		}
		if report.Failures > 0 {
			b.sender.SendUpdate(ErrorMsg{
				Error: fmt.Errorf("%d of %d checks failed",
					report.Failures, report.Passes+report.Warnings+report.Failures),
				Title: "Diagnostics",
			})
		} else {
			b.sender.SendUpdate(StatusMsg{Message: fmt.Sprintf("diagnostics: %d passed, %d warnings",
				report.Passes, report.Warnings)})
		}
		return nil
	})

	return b
}

func (b *EventBridge) sub(bus *events.Bus, t events.EventType, fn func(context.Context, events.Event) error) {
	b.subs = append(b.subs, bus.SubscribeFunc(t, fn))
}

// Stats reports how many messages the bridge forwarded and dropped.
func (b *EventBridge) Stats() (sent, dropped uint64) {
	return b.sender.GetStats()
}

// Close removes every bus subscription and stops the sender.
func (b *EventBridge) Close() {
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
	b.sender.Close()
}
